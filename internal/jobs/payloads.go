package jobs

import (
	"fmt"
	"time"
)

// NotificationCategory groups notifications in the UI.
type NotificationCategory string

const (
	CategoryDeal     NotificationCategory = "deal"
	CategoryFund     NotificationCategory = "fund"
	CategoryDocument NotificationCategory = "document"
	CategoryReport   NotificationCategory = "report"
	CategorySystem   NotificationCategory = "system"
)

// Channels selects the delivery channels of a notification.
// With nothing selected the notification is in-app only.
type Channels struct {
	Email bool `json:"email,omitempty"`
	Push  bool `json:"push,omitempty"`
	InApp bool `json:"inApp,omitempty"`
}

func (c Channels) normalized() Channels {
	if !c.Email && !c.Push && !c.InApp {
		c.InApp = true
	}
	return c
}

// NotificationPayload is the payload of the notifications queue.
type NotificationPayload struct {
	UserID   int64                `json:"userId" validate:"required,gt=0"`
	Title    string               `json:"title" validate:"required,max=200"`
	Content  string               `json:"content" validate:"required"`
	Category NotificationCategory `json:"category,omitempty" validate:"omitempty,oneof=deal fund document report system"`
	Metadata map[string]any       `json:"metadata,omitempty"`
	Channels Channels             `json:"channels"`
}

// ReportType selects what a report covers.
type ReportType string

const (
	ReportDealSummary          ReportType = "deal_summary"
	ReportPortfolioPerformance ReportType = "portfolio_performance"
	ReportFundOverview         ReportType = "fund_overview"
	ReportInvestmentMetrics    ReportType = "investment_metrics"
)

// ReportFormat is the rendered artifact format.
type ReportFormat string

const (
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "excel"
	FormatCSV   ReportFormat = "csv"
)

// DateRange bounds the data included in a report.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ReportParameters are the inputs of a report.
type ReportParameters struct {
	DealID    int64        `json:"dealId,omitempty"`
	FundID    int64        `json:"fundId,omitempty"`
	DateRange *DateRange   `json:"dateRange,omitempty"`
	Format    ReportFormat `json:"format,omitempty" validate:"omitempty,oneof=pdf excel csv"`
	UserID    int64        `json:"userId" validate:"required,gt=0"`
}

// ReportPayload is the payload of the report-generation queue.
type ReportPayload struct {
	ReportType ReportType       `json:"reportType" validate:"required,oneof=deal_summary portfolio_performance fund_overview investment_metrics"`
	Parameters ReportParameters `json:"parameters"`
}

// Validate checks the rules that depend on the report type.
func (p ReportPayload) Validate() error {
	switch p.ReportType {
	case ReportDealSummary:
		if p.Parameters.DealID <= 0 {
			return fmt.Errorf("%w: %s requires dealId", ErrInvalidReport, p.ReportType)
		}
	case ReportFundOverview:
		if p.Parameters.FundID <= 0 {
			return fmt.Errorf("%w: %s requires fundId", ErrInvalidReport, p.ReportType)
		}
	}
	if r := p.Parameters.DateRange; r != nil && !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: date range ends before it starts", ErrInvalidReport)
	}
	return nil
}

func (p ReportPayload) format() ReportFormat {
	if p.Parameters.Format == "" {
		return FormatPDF
	}
	return p.Parameters.Format
}

// DocumentType selects the processing applied to a document.
type DocumentType string

const (
	DocumentOCR        DocumentType = "ocr"
	DocumentAnalysis   DocumentType = "analysis"
	DocumentConversion DocumentType = "conversion"
)

// DocumentOptions tune document processing.
type DocumentOptions struct {
	TargetFormat    string `json:"targetFormat,omitempty" validate:"omitempty,oneof=pdf docx txt html"`
	ExtractText     bool   `json:"extractText,omitempty"`
	ExtractTables   bool   `json:"extractTables,omitempty"`
	ExtractMetadata bool   `json:"extractMetadata,omitempty"`
}

// DocumentPayload is the payload of the document-processing queue.
type DocumentPayload struct {
	DocumentID int64           `json:"documentId" validate:"required,gt=0"`
	Type       DocumentType    `json:"type" validate:"required,oneof=ocr analysis conversion"`
	Options    DocumentOptions `json:"options"`
}

// Validate checks the rules that depend on the document type.
func (p DocumentPayload) Validate() error {
	if p.Type == DocumentConversion && p.Options.TargetFormat == "" {
		return fmt.Errorf("%w: conversion requires targetFormat", ErrInvalidDocument)
	}
	return nil
}

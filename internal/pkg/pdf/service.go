// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/domain/order"
)

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money":    func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":     func(t time.Time) string { return t.Format("January 2, 2006") },
	"positive": func(d decimal.Decimal) bool { return d.IsPositive() },
}).Parse(invoiceTemplate))

// Service renders order invoices
type Service struct {
	company config.CompanyConfig
	now     func() time.Time
}

// NewService creates a new PDF service
func NewService(company config.CompanyConfig) *Service {
	return &Service{
		company: company,
		now:     time.Now,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string               `json:"invoiceNumber"`
	InvoiceDate   string               `json:"invoiceDate"`
	Order         *order.Order         `json:"order"`
	Company       config.CompanyConfig `json:"company"`
}

// Data builds the invoice view of o. Paid orders are dated by payment.
func (s *Service) Data(o *order.Order) InvoiceData {
	issued := s.now()
	if o.Payment.PaidAt != nil {
		issued = *o.Payment.PaidAt
	}
	return InvoiceData{
		InvoiceNumber: "INV-" + o.OrderNumber,
		InvoiceDate:   issued.Format("January 2, 2006"),
		Order:         o,
		Company:       s.company,
	}
}

// RenderHTML renders the invoice markup for o
func (s *Service) RenderHTML(o *order.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, s.Data(o)); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateInvoice converts the invoice markup to PDF with wkhtmltopdf
func (s *Service) GenerateInvoice(o *order.Order) ([]byte, error) {
	html, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return pdfg.Bytes(), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 20px; color: #333; }
.header { display: flex; justify-content: space-between; border-bottom: 2px solid #eee; padding-bottom: 20px; }
.title { font-size: 28px; font-weight: bold; color: #8a6d1d; }
.addresses { display: flex; justify-content: space-between; margin: 30px 0; }
table.items { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
table.items th, table.items td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
table.items .num { text-align: right; }
.totals { float: right; width: 300px; }
.totals td { padding: 6px; text-align: right; }
.grand { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
.footer { clear: both; margin-top: 50px; text-align: center; color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="header">
  <div>
    <h1>{{.Company.Name}}</h1>
    <p>{{.Company.Address}}</p>
    <p>Phone: {{.Company.Phone}} | {{.Company.Email}}</p>
    {{if .Company.GSTIN}}<p>GSTIN: {{.Company.GSTIN}}</p>{{end}}
  </div>
  <div>
    <div class="title">TAX INVOICE</div>
    <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
    <p><strong>Date:</strong> {{.InvoiceDate}}</p>
    <p><strong>Order #:</strong> {{.Order.OrderNumber}} ({{date .Order.CreatedAt}})</p>
    <p><strong>Payment:</strong> {{.Order.Payment.Method}} / {{.Order.Payment.Status}}</p>
  </div>
</div>

<div class="addresses">
  {{with .Order.BillingAddress}}
  <div>
    <strong>Bill To</strong>
    <p>{{.FullName}}<br>{{.Line1}}{{if .Line2}}<br>{{.Line2}}{{end}}<br>{{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}</p>
    <p>Phone: {{.Phone}}</p>
  </div>
  {{end}}
  {{with .Order.ShippingAddress}}
  <div>
    <strong>Ship To</strong>
    <p>{{.FullName}}<br>{{.Line1}}{{if .Line2}}<br>{{.Line2}}{{end}}<br>{{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}</p>
  </div>
  {{end}}
</div>

<table class="items">
  <thead><tr><th>Item</th><th>SKU</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Total</th></tr></thead>
  <tbody>
  {{range .Order.Items}}
  <tr>
    <td><strong>{{.Name}}</strong>{{if .VariantName}}<br><small>{{.VariantName}}</small>{{end}}</td>
    <td>{{.SKU}}</td>
    <td class="num">{{.Quantity}}</td>
    <td class="num">{{money .UnitPrice}}</td>
    <td class="num">{{money .LineTotal}}</td>
  </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Subtotal</td><td>{{money .Order.Pricing.Subtotal}}</td></tr>
  {{if positive .Order.Pricing.Discount}}<tr><td>Discount</td><td>-{{money .Order.Pricing.Discount}}</td></tr>{{end}}
  <tr><td>Shipping</td><td>{{money .Order.Pricing.Shipping}}</td></tr>
  <tr><td>Tax</td><td>{{money .Order.Pricing.Tax}}</td></tr>
  <tr class="grand"><td>Total ({{.Order.Currency}})</td><td>{{money .Order.Pricing.Total}}</td></tr>
</table>

<div class="footer">
  <p>Thank you for shopping with {{.Company.Name}}.</p>
  <p>Questions about this invoice? Write to {{.Company.Email}} or visit {{.Company.Website}}</p>
</div>
</body>
</html>
`

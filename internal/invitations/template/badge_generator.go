package template

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/signintech/gopdf"

	"ms-invitations/internal/models"
)

const DefaultFontPath = "./fonts/DejaVuSans.ttf"

// BadgePDFGenerator renders a printable entrance badge for an invitation.
type BadgePDFGenerator struct {
	FontPath string
}

func NewBadgePDFGenerator(fontPath string) *BadgePDFGenerator {
	if fontPath == "" {
		fontPath = DefaultFontPath
	}
	return &BadgePDFGenerator{FontPath: fontPath}
}

func (g *BadgePDFGenerator) Generate(event *models.Event, inv *models.Invitation, qrPNG []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: 298, H: 420}}) // ISO A6 in points; gopdf has no PageSizeA6
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont("dejavu", "", 18); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	// Header
	pdf.SetX(20)
	pdf.SetY(24)
	pdf.Cell(nil, inv.Name)

	if err := pdf.SetFont("dejavu", "", 10); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(52)
	addEventInfo(pdf, event, inv)

	if len(qrPNG) > 0 {
		pdf.SetY(pdf.GetY() + 10)
		addQRCode(pdf, qrPNG)
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addEventInfo(pdf *gopdf.GoPdf, event *models.Event, inv *models.Invitation) {
	info := []struct {
		Label string
		Value string
	}{
		{"Event", event.Title},
		{"Starts", event.StartTime.Format("2006-01-02 15:04 MST")},
		{"Location", event.Location},
		{"Email", inv.Email},
		{"Status", strings.ToUpper(string(inv.Status))},
	}

	for _, item := range info {
		if item.Value == "" {
			continue
		}
		pdf.SetX(20)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(16)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrPNG []byte) {
	pdf.SetX(20)
	img, err := png.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 140, H: 140}
	if err := pdf.ImageFrom(img, 80, pdf.GetY(), rect); err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

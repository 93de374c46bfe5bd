package notify

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/signintech/gopdf"

	"gatepass/internal/models"
)

// PassSheetGenerator renders one printable page per item. Needs a TTF font
// on disk; when the font is missing the generator is simply not wired and
// the email goes out without the attachment.
type PassSheetGenerator struct {
	fontPath string
}

func NewPassSheetGenerator(fontPath string) (*PassSheetGenerator, error) {
	if _, err := os.Stat(fontPath); err != nil {
		return nil, fmt.Errorf("pass sheet font unavailable: %w", err)
	}
	return &PassSheetGenerator{fontPath: fontPath}, nil
}

func (g *PassSheetGenerator) Generate(order models.Order, event *models.Event, items []models.Item) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFont("sans", g.fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	for _, item := range items {
		pdf.AddPage()

		if err := pdf.SetFont("sans", "", 18); err != nil {
			return nil, fmt.Errorf("failed to set font: %w", err)
		}
		pdf.SetX(40)
		pdf.SetY(40)
		pdf.Cell(nil, eventName(event))

		if err := pdf.SetFont("sans", "", 12); err != nil {
			return nil, fmt.Errorf("failed to set font: %w", err)
		}
		pdf.SetY(70)
		writePassInfo(pdf, order, event, item)

		if len(item.QRCode) > 0 {
			pdf.SetY(pdf.GetY() + 20)
			drawQRCode(pdf, item.QRCode)
		}

		pdf.SetY(700)
		pdf.SetX(40)
		pdf.Cell(nil, "One entry per code. Keep this page ready at the gate.")
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writePassInfo(pdf *gopdf.GoPdf, order models.Order, event *models.Event, item models.Item) {
	info := []struct {
		Label string
		Value string
	}{
		{"Type", kindLabel(item.Kind)},
		{"Code", item.ItemID},
		{"Holder", item.BuyerName},
		{"Order", order.SessionID},
	}
	if event != nil {
		info = append(info,
			struct{ Label, Value string }{"When", event.Date.Format("2006-01-02 15:04")},
			struct{ Label, Value string }{"Venue", event.Venue},
		)
	}

	for _, row := range info {
		pdf.SetX(40)
		pdf.Cell(nil, row.Label+": "+row.Value)
		pdf.Br(20)
	}
}

func drawQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "QR code unavailable")
		return
	}

	rect := &gopdf.Rect{W: 160, H: 160}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), rect); err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "QR code unavailable")
	}
}

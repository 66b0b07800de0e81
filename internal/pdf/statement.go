package pdf

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taskdesk/internal/models"
)

// Generator renders statements; StatementGenerator is the gofpdf one.
type Generator interface {
	RenderStatement(w io.Writer, data StatementData) error
}

// StatementGenerator renders a worker's bonus statement.
type StatementGenerator struct {
	FontPath string // путь до TTF с кириллицей; без него используется Helvetica
}

type StatementData struct {
	WorkerName  string
	WorkerEmail string
	Balance     int64
	Entries     []models.BonusEntry
	TaskTitles  map[int64]string
	GeneratedAt time.Time
}

func NewStatementGenerator(fontPath string) *StatementGenerator {
	return &StatementGenerator{FontPath: fontPath}
}

func (g *StatementGenerator) RenderStatement(w io.Writer, data StatementData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bonus statement", true)
	pdf.SetAuthor("Taskdesk", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	font := g.setupFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(font, "B", 18)
	pdf.CellFormat(0, 10, "Bonus statement", "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 7, data.GeneratedAt.Format("02.01.2006 15:04"), "", 1, "C", false, 0, "")
	hr(pdf)

	kvLine(pdf, font, "Worker", data.WorkerName)
	kvLine(pdf, font, "E-mail", data.WorkerEmail)
	kvLine(pdf, font, "Balance", strconv.FormatInt(data.Balance, 10))
	pdf.Ln(2)
	hr(pdf)

	// ===== Движения
	header := []string{"Date", "Task", "Reason", "Amount"}
	widths := []float64{35, 75, 35, 25}
	pdf.SetFont(font, "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(font, "", 10)
	var total int64
	for _, e := range data.Entries {
		task := "-"
		if e.TaskID != nil {
			task = "#" + strconv.FormatInt(*e.TaskID, 10)
			if title, ok := data.TaskTitles[*e.TaskID]; ok && title != "" {
				task = title
			}
		}
		total += e.Amount
		pdf.CellFormat(widths[0], 6, e.CreatedAt.Format("02.01.2006 15:04"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, truncate(task, 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, string(e.Reason), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%+d", e.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont(font, "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, strconv.FormatInt(total, 10), "1", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	return nil
}

// ===== helpers =====

func (g *StatementGenerator) setupFont(pdf *gofpdf.Fpdf) string {
	if g.FontPath == "" {
		return "Helvetica"
	}
	if _, err := os.Stat(g.FontPath); err != nil {
		return "Helvetica"
	}
	// AddUTF8Font принимает путь до TTF
	pdf.AddUTF8Font("DejaVu", "", g.FontPath)
	pdf.AddUTF8Font("DejaVu", "B", g.FontPath)
	return "DejaVu"
}

func kvLine(pdf *gofpdf.Fpdf, font, key, val string) {
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

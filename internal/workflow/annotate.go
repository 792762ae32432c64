package workflow

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// Annotation flag bits.
const (
	flagNone  = 0
	flagPrint = 4
)

const (
	watermarkFont     = "Helvetica-Bold"
	watermarkFontRes  = "HeBo"
	watermarkSize     = 36
	watermarkOpacity  = 0.15
	pageNumberFont    = "Helvetica"
	pageNumberFontRes = "Helv"
	pageNumberSize    = 11
	pageNumberMargin  = 16
	lineHeight        = 1.2
)

// letter is used when a page has no resolvable media box.
var letter = Rect{W: 612, H: 792}

// freeText describes one FreeText annotation to be placed on a page.
type freeText struct {
	Rect      Rect
	Text      string
	Font      string
	FontRes   string
	FontSize  int
	TextWidth float64
	Flags     int
	Opacity   float64
	Centered  bool
}

// annotateFile adds the annotations returned by place to every page of in
// and writes the result to out. place may return false to skip a page.
func annotateFile(in, out string, place func(page int, box Rect) (freeText, bool)) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}
	ctx, err := api.ReadValidateAndOptimize(f, newConfiguration())
	f.Close()
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", models.ErrAccessDenied, in, err)
	}

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		d, pageRef, inh, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", models.ErrWriteFailure, pageNr, err)
		}
		if d == nil {
			continue
		}
		a, ok := place(pageNr, mediaBox(inh))
		if !ok {
			continue
		}
		ap, err := a.appearance(ctx)
		if err != nil {
			return fmt.Errorf("%w: page %d appearance: %v", models.ErrWriteFailure, pageNr, err)
		}
		ir, err := ctx.IndRefForNewObject(a.dict(pageRef, ap))
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", models.ErrWriteFailure, pageNr, err)
		}
		annots := types.Array{}
		if obj, found := d.Find("Annots"); found && obj != nil {
			if annots, err = ctx.DereferenceArray(obj); err != nil {
				return fmt.Errorf("%w: page %d annotations: %v", models.ErrWriteFailure, pageNr, err)
			}
		}
		d["Annots"] = append(annots, *ir)
	}

	if err := api.WriteContextFile(ctx, out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWriteFailure, err)
	}
	return nil
}

func mediaBox(inh *model.InheritedPageAttrs) Rect {
	if inh == nil || inh.MediaBox == nil {
		return letter
	}
	mb := inh.MediaBox
	return Rect{X: mb.LL.X, Y: mb.LL.Y, W: mb.UR.X - mb.LL.X, H: mb.UR.Y - mb.LL.Y}
}

func (a freeText) dict(pageRef, appearance *types.IndirectRef) types.Dict {
	r := a.Rect.Array()
	d := types.Dict{
		"Type":     types.Name("Annot"),
		"Subtype":  types.Name("FreeText"),
		"Rect":     types.Array{types.Float(r[0]), types.Float(r[1]), types.Float(r[2]), types.Float(r[3])},
		"Contents": textString(a.Text),
		"NM":       types.StringLiteral(uuid.NewString()),
		"F":        types.Integer(a.Flags),
		"DA":       types.StringLiteral(fmt.Sprintf("/%s %d Tf 0 g", a.FontRes, a.FontSize)),
		"Border":   types.Array{types.Integer(0), types.Integer(0), types.Integer(0)},
	}
	if a.Centered {
		d["Q"] = types.Integer(1)
	}
	if a.translucent() {
		d["CA"] = types.Float(a.Opacity)
	}
	if pageRef != nil {
		d["P"] = *pageRef
	}
	if appearance != nil {
		d["AP"] = types.Dict{"N": *appearance}
	}
	return d
}

// appearance adds the normal appearance stream of a: a form XObject the
// size of Rect that carries its own font and transparency resources, so
// viewers need not synthesize one from /DA.
func (a freeText) appearance(ctx *model.Context) (*types.IndirectRef, error) {
	resources := types.Dict{
		"Font": types.Dict{
			a.FontRes: types.Dict{
				"Type":     types.Name("Font"),
				"Subtype":  types.Name("Type1"),
				"BaseFont": types.Name(a.Font),
				"Encoding": types.Name("WinAnsiEncoding"),
			},
		},
	}
	if a.translucent() {
		resources["ExtGState"] = types.Dict{
			"GS0": types.Dict{
				"Type": types.Name("ExtGState"),
				"ca":   types.Float(a.Opacity),
				"CA":   types.Float(a.Opacity),
			},
		}
	}
	sd := types.NewStreamDict(types.Dict{
		"Type":      types.Name("XObject"),
		"Subtype":   types.Name("Form"),
		"BBox":      types.Array{types.Float(0), types.Float(0), types.Float(a.Rect.W), types.Float(a.Rect.H)},
		"Resources": resources,
	}, 0, nil, nil, nil)
	sd.Content = []byte(a.appearanceContent())
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(sd)
}

// appearanceContent draws Text in black on one line, vertically centered in
// Rect and horizontally centered when Centered is set.
func (a freeText) appearanceContent() string {
	x := 0.0
	if a.Centered {
		x = (a.Rect.W - a.TextWidth) / 2
	}
	// Cap height of the standard Helvetica faces is about 0.7 em.
	y := (a.Rect.H - 0.7*float64(a.FontSize)) / 2

	var sb strings.Builder
	sb.WriteString("q ")
	if a.translucent() {
		sb.WriteString("/GS0 gs ")
	}
	fmt.Fprintf(&sb, "BT /%s %d Tf 0 g %.2f %.2f Td (%s) Tj ET Q", a.FontRes, a.FontSize, x, y, winAnsiLiteral(a.Text))
	return sb.String()
}

func (a freeText) translucent() bool {
	return a.Opacity > 0 && a.Opacity < 1
}

// winAnsiLiteral encodes s for a literal string shown with a WinAnsi font.
// Runes outside the encoding become '?'.
func winAnsiLiteral(s string) string {
	var sb strings.Builder
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		switch b {
		case '\\', '(', ')':
			sb.WriteByte('\\')
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// textString encodes s as a hex string, UTF-16BE with a byte order mark
// when it is not plain ASCII.
func textString(s string) types.HexLiteral {
	if isASCII(s) {
		return types.HexLiteral(hex.EncodeToString([]byte(s)))
	}
	b, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		b = []byte(s)
	}
	return types.HexLiteral(hex.EncodeToString(b))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func textWidth(text, fontName string, size int) float64 {
	return font.TextWidth(text, fontName, size)
}

func watermarkAnnotation(step models.Step, box Rect) freeText {
	w := textWidth(step.Text, watermarkFont, watermarkSize)
	h := watermarkSize * lineHeight
	r := centered(box, w, h)
	if step.X != nil {
		r.X = *step.X
	}
	if step.Y != nil {
		r.Y = *step.Y
	}
	return freeText{
		Rect:      r,
		Text:      step.Text,
		Font:      watermarkFont,
		FontRes:   watermarkFontRes,
		FontSize:  watermarkSize,
		TextWidth: w,
		Flags:     flagNone,
		Opacity:   watermarkOpacity,
		Centered:  true,
	}
}

// pageNumberAnnotation returns the label for page, or false when page lies
// outside the step's range.
func pageNumberAnnotation(step models.Step, page int, box Rect) (freeText, bool) {
	if step.FirstPage > 0 && page < step.FirstPage {
		return freeText{}, false
	}
	if step.LastPage > 0 && page > step.LastPage {
		return freeText{}, false
	}
	format := step.Format
	if format == "" {
		format = "%d"
	}
	position := step.Position
	if position == "" {
		position = models.BottomCenter
	}
	label := fmt.Sprintf(format, page)
	w := textWidth(label, pageNumberFont, pageNumberSize)
	h := pageNumberSize * lineHeight
	return freeText{
		Rect:      anchored(box, w, h, pageNumberMargin, position),
		Text:      label,
		Font:      pageNumberFont,
		FontRes:   pageNumberFontRes,
		FontSize:  pageNumberSize,
		TextWidth: w,
		Flags:     flagPrint,
	}, true
}

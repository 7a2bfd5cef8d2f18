package newsletter

import "strings"

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// BlockInput carries caller-supplied data for a new block. Empty strings
// mean "use the type default".
type BlockInput struct {
	Content string `json:"content,omitempty"`
	Src     string `json:"src,omitempty"`
	Href    string `json:"href,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Style   Style  `json:"style,omitempty"`
}

// BlockPatch is a partial update. Nil fields are left untouched and Style is
// merged key by key into the existing style.
type BlockPatch struct {
	Content *string `json:"content,omitempty"`
	Src     *string `json:"src,omitempty"`
	Href    *string `json:"href,omitempty"`
	Alt     *string `json:"alt,omitempty"`
	Style   Style   `json:"style,omitempty"`
}

func (p BlockPatch) Empty() bool {
	return p.Content == nil && p.Src == nil && p.Href == nil && p.Alt == nil && len(p.Style) == 0
}

// NewBlock builds a block of the given type with defaults derived from the
// theme, then applies input on top.
func NewBlock(id string, blockType BlockType, theme Theme, input BlockInput) Block {
	style := Style{
		StylePadding:      "20px",
		StyleTextAlign:    "left",
		StyleFontSize:     "16px",
		StyleFontWeight:   "400",
		StyleFontFamily:   theme.FontFamily,
		StyleBorderRadius: "0px",
	}

	block := Block{ID: id, Type: blockType}
	switch blockType {
	case BlockHeader:
		block.Content = "New Section"
		style[StyleFontSize] = "24px"
		style[StyleFontWeight] = "700"
	case BlockText:
		block.Content = "Write your message here..."
	case BlockImage:
		block.Src = "https://picsum.photos/800/400"
	case BlockVideo:
		block.Src = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	case BlockButton:
		block.Content = "Learn More"
		style[StyleBackgroundColor] = theme.PrimaryColor
		style[StyleHoverBackgroundColor] = HoverColor(theme.PrimaryColor)
		style[StyleHoverScale] = "1.05"
		style[StyleColor] = "#FFFFFF"
		style[StyleBorderRadius] = "8px"
		style[StyleTextAlign] = "center"
		style[StylePadding] = "12px 24px"
		style[StyleFontWeight] = "600"
	case BlockDivider:
		style[StyleBorderWidth] = "1px"
		style[StyleBorderStyle] = "solid"
		style[StyleBorderColor] = "#E2E8F0"
		style[StyleMarginTop] = "20px"
		style[StyleMarginBottom] = "20px"
	case BlockSpacer:
		style[StyleHeight] = "40px"
	}

	if strings.TrimSpace(input.Content) != "" {
		block.Content = input.Content
	}
	if strings.TrimSpace(input.Src) != "" {
		block.Src = input.Src
	}
	if input.Href != "" {
		block.Href = input.Href
	}
	if input.Alt != "" {
		block.Alt = input.Alt
	}
	block.Style = style.Merge(input.Style)
	return block
}

// AppendBlock returns a copy of doc with block added at the end.
func AppendBlock(doc Document, block Block) Document {
	out := doc.Clone()
	out.Blocks = append(out.Blocks, block.Clone())
	return out
}

// UpdateBlock merges patch into the block with the given id. Other blocks and
// their order are untouched; an unknown id leaves the document as it was.
func UpdateBlock(doc Document, id string, patch BlockPatch) Document {
	index := doc.IndexOf(id)
	if index < 0 {
		return doc
	}
	out := doc.Clone()
	block := out.Blocks[index]
	if patch.Content != nil {
		block.Content = *patch.Content
	}
	if patch.Src != nil {
		block.Src = *patch.Src
	}
	if patch.Href != nil {
		block.Href = *patch.Href
	}
	if patch.Alt != nil {
		block.Alt = *patch.Alt
	}
	if len(patch.Style) > 0 {
		block.Style = block.Style.Merge(patch.Style)
	}
	out.Blocks[index] = block
	return out
}

func RemoveBlock(doc Document, id string) Document {
	if doc.IndexOf(id) < 0 {
		return doc
	}
	out := doc.Clone()
	kept := make([]Block, 0, len(out.Blocks))
	for _, block := range out.Blocks {
		if block.ID != id {
			kept = append(kept, block)
		}
	}
	out.Blocks = kept
	return out
}

// MoveBlock swaps the block with its neighbour in the given direction. Moving
// past either end does nothing; there is no wraparound.
func MoveBlock(doc Document, id string, direction Direction) Document {
	index := doc.IndexOf(id)
	if index < 0 {
		return doc
	}
	target := index + 1
	if direction == DirectionUp {
		target = index - 1
	}
	if target < 0 || target >= len(doc.Blocks) {
		return doc
	}
	out := doc.Clone()
	out.Blocks[index], out.Blocks[target] = out.Blocks[target], out.Blocks[index]
	return out
}

// DuplicateBlock inserts a deep copy of the block, carrying newID, directly
// after the original.
func DuplicateBlock(doc Document, id, newID string) Document {
	index := doc.IndexOf(id)
	if index < 0 {
		return doc
	}
	out := doc.Clone()
	clone := out.Blocks[index].Clone()
	clone.ID = newID

	blocks := make([]Block, 0, len(out.Blocks)+1)
	blocks = append(blocks, out.Blocks[:index+1]...)
	blocks = append(blocks, clone)
	blocks = append(blocks, out.Blocks[index+1:]...)
	out.Blocks = blocks
	return out
}

// ApplyTheme replaces the theme and cascades its font into every block.
//
// Buttons still painted with the previous primary colour (or its derived
// hover colour) are repainted with the new one. This is a string comparison,
// not a tracked reference: a button whose colour was set by hand to the same
// value is repainted too.
func ApplyTheme(doc Document, theme Theme) Document {
	out := doc.Clone()
	previous := doc.Theme
	for i, block := range out.Blocks {
		style := block.Style.Clone()
		style[StyleFontFamily] = theme.FontFamily
		if block.Type == BlockButton {
			if sameColor(style[StyleBackgroundColor], previous.PrimaryColor) {
				style[StyleBackgroundColor] = theme.PrimaryColor
			}
			if sameColor(style[StyleHoverBackgroundColor], HoverColor(previous.PrimaryColor)) {
				style[StyleHoverBackgroundColor] = HoverColor(theme.PrimaryColor)
			}
		}
		out.Blocks[i].Style = style
	}
	out.Theme = theme
	return out
}

func SetTitle(doc Document, title string) Document {
	out := doc.Clone()
	out.Title = title
	return out
}

func sameColor(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

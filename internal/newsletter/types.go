// Package newsletter holds the document model of the editor: the newsletter,
// its ordered blocks, block styles and themes, and the pure transformations
// applied to them.
package newsletter

import (
	"fmt"
	"strings"
	"time"

	"github.com/brunoga/deep"
)

type BlockType string

const (
	BlockHeader  BlockType = "header"
	BlockText    BlockType = "text"
	BlockImage   BlockType = "image"
	BlockVideo   BlockType = "video"
	BlockButton  BlockType = "button"
	BlockDivider BlockType = "divider"
	BlockSpacer  BlockType = "spacer"
)

var blockTypes = map[BlockType]struct{}{
	BlockHeader:  {},
	BlockText:    {},
	BlockImage:   {},
	BlockVideo:   {},
	BlockButton:  {},
	BlockDivider: {},
	BlockSpacer:  {},
}

// ParseBlockType validates a block type coming from the outside world.
func ParseBlockType(value string) (BlockType, error) {
	blockType := BlockType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := blockTypes[blockType]; !ok {
		return "", fmt.Errorf("unknown block type %q", value)
	}
	return blockType, nil
}

// Block is one content unit of a newsletter. Which optional fields matter
// depends on Type: Src for image/video, Href for image/button.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content,omitempty"`
	Src     string    `json:"src,omitempty"`
	Href    string    `json:"href,omitempty"`
	Alt     string    `json:"alt,omitempty"`
	Style   Style     `json:"style"`
}

// Clone returns a copy of the block that shares no style map with b.
func (b Block) Clone() Block {
	out := b
	out.Style = b.Style.Clone()
	return out
}

// Theme is a named bundle of colour and font defaults.
type Theme struct {
	Name            string `json:"name"`
	PrimaryColor    string `json:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"`
	CanvasColor     string `json:"canvasColor"`
	FontFamily      string `json:"fontFamily"`
}

// Document is the newsletter being edited. Blocks are rendered in slice order.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
	Blocks    []Block   `json:"blocks"`
	Theme     Theme     `json:"theme"`
}

// Clone returns a deep, independent copy of the document. History entries
// rely on this: no block or style of the copy aliases the original.
func (d Document) Clone() Document {
	out := d
	out.Blocks = deep.MustCopy(d.Blocks)
	if out.Blocks == nil {
		out.Blocks = []Block{}
	}
	for i := range out.Blocks {
		if out.Blocks[i].Style == nil {
			out.Blocks[i].Style = Style{}
		}
	}
	return out
}

// Normalize fills nil collections so the JSON form always carries arrays and
// objects, which is what clients iterate over.
func (d *Document) Normalize() {
	if d.Blocks == nil {
		d.Blocks = []Block{}
	}
	for i := range d.Blocks {
		if d.Blocks[i].Style == nil {
			d.Blocks[i].Style = Style{}
		}
	}
}

// IndexOf returns the position of the block with the given id, or -1.
func (d Document) IndexOf(id string) int {
	for i, block := range d.Blocks {
		if block.ID == id {
			return i
		}
	}
	return -1
}

// Context is the plain text handed to the generation backend as context for
// the current draft.
func (d Document) Context() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, block := range d.Blocks {
		parts = append(parts, block.Content)
	}
	return strings.Join(parts, " ")
}

// Text is the searchable body of the document.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, block := range d.Blocks {
		for _, value := range []string{block.Content, block.Alt} {
			if strings.TrimSpace(value) != "" {
				parts = append(parts, value)
			}
		}
	}
	return strings.Join(parts, "\n")
}

package newsletter

import (
	"reflect"
	"testing"
)

func testDoc(ids ...string) Document {
	doc := Document{ID: "doc-1", Title: "Draft", Theme: themes["modern"]}
	for _, id := range ids {
		doc.Blocks = append(doc.Blocks, Block{
			ID:      id,
			Type:    BlockText,
			Content: "content " + id,
			Style:   Style{StyleFontFamily: "Inter, sans-serif", StyleColor: "#111111"},
		})
	}
	return doc
}

func findBlock(doc Document, id string) (Block, bool) {
	if index := doc.IndexOf(id); index >= 0 {
		return doc.Blocks[index], true
	}
	return Block{}, false
}

func blockIDs(doc Document) []string {
	ids := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		ids = append(ids, block.ID)
	}
	return ids
}

func TestCloneDoesNotAliasBlocksOrStyles(t *testing.T) {
	doc := testDoc("a", "b")
	clone := doc.Clone()

	clone.Blocks[0].Content = "changed"
	clone.Blocks[1].Style[StyleColor] = "#FF0000"
	clone.Blocks = append(clone.Blocks, Block{ID: "c"})

	if doc.Blocks[0].Content != "content a" {
		t.Fatalf("clone content mutation leaked into original: %q", doc.Blocks[0].Content)
	}
	if doc.Blocks[1].Style[StyleColor] != "#111111" {
		t.Fatalf("clone style mutation leaked into original: %q", doc.Blocks[1].Style[StyleColor])
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected original to keep 2 blocks, got %d", len(doc.Blocks))
	}
}

func TestParseBlockType(t *testing.T) {
	for _, value := range []string{"header", "text", "image", "video", "button", "divider", "spacer", " Header "} {
		if _, err := ParseBlockType(value); err != nil {
			t.Fatalf("expected %q to parse, got %v", value, err)
		}
	}
	if _, err := ParseBlockType("carousel"); err == nil {
		t.Fatal("expected unknown block type to be rejected")
	}
}

func TestNewBlockDefaultsAndOverrides(t *testing.T) {
	theme := themes["modern"]

	header := NewBlock("h", BlockHeader, theme, BlockInput{})
	if header.Content != "New Section" || header.Style[StyleFontSize] != "24px" || header.Style[StyleFontWeight] != "700" {
		t.Fatalf("unexpected header defaults: %+v", header)
	}

	image := NewBlock("i", BlockImage, theme, BlockInput{})
	if image.Src != "https://picsum.photos/800/400" {
		t.Fatalf("expected placeholder image src, got %q", image.Src)
	}

	button := NewBlock("b", BlockButton, theme, BlockInput{Content: "Subscribe", Style: Style{StyleBorderRadius: "2px"}})
	if button.Content != "Subscribe" {
		t.Fatalf("expected caller content to win, got %q", button.Content)
	}
	if button.Style[StyleBackgroundColor] != theme.PrimaryColor {
		t.Fatalf("expected button background %s, got %s", theme.PrimaryColor, button.Style[StyleBackgroundColor])
	}
	if button.Style[StyleHoverBackgroundColor] != HoverColor(theme.PrimaryColor) {
		t.Fatalf("expected derived hover colour, got %s", button.Style[StyleHoverBackgroundColor])
	}
	if button.Style[StyleBorderRadius] != "2px" {
		t.Fatalf("expected caller style to override default, got %s", button.Style[StyleBorderRadius])
	}
	if button.Style[StyleFontFamily] != theme.FontFamily {
		t.Fatalf("expected theme font, got %s", button.Style[StyleFontFamily])
	}

	text := NewBlock("t", BlockText, theme, BlockInput{Content: "   "})
	if text.Content != "Write your message here..." {
		t.Fatalf("expected blank input content to fall back to default, got %q", text.Content)
	}
}

func TestHoverColor(t *testing.T) {
	if got := HoverColor("#0057FF"); got != "#0045CC" {
		t.Fatalf("expected #0045CC, got %s", got)
	}
	if got := HoverColor("#FFF"); got != "#CCCCCC" {
		t.Fatalf("expected #CCCCCC, got %s", got)
	}
	if got := HoverColor("rebeccapurple"); got != "rebeccapurple" {
		t.Fatalf("expected named colour to pass through, got %s", got)
	}
}

func TestAppendBlockLeavesInputUntouched(t *testing.T) {
	doc := testDoc("a")
	out := AppendBlock(doc, Block{ID: "b", Type: BlockText, Style: Style{}})
	if !reflect.DeepEqual(blockIDs(out), []string{"a", "b"}) {
		t.Fatalf("unexpected order %v", blockIDs(out))
	}
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected input to keep one block, got %d", len(doc.Blocks))
	}
}

func TestUpdateBlockMergesOnlyTarget(t *testing.T) {
	doc := testDoc("a", "b", "c")
	content := "updated"
	out := UpdateBlock(doc, "b", BlockPatch{
		Content: &content,
		Style:   Style{StyleFontSize: "20px", StyleColor: ""},
	})

	if !reflect.DeepEqual(blockIDs(out), []string{"a", "b", "c"}) {
		t.Fatalf("update must preserve order, got %v", blockIDs(out))
	}
	updated := out.Blocks[1]
	if updated.Content != "updated" {
		t.Fatalf("expected updated content, got %q", updated.Content)
	}
	if updated.Style[StyleFontSize] != "20px" {
		t.Fatalf("expected merged font size, got %q", updated.Style[StyleFontSize])
	}
	if _, ok := updated.Style[StyleColor]; ok {
		t.Fatal("expected empty style value to remove the key")
	}
	if updated.Style[StyleFontFamily] != "Inter, sans-serif" {
		t.Fatal("expected untouched style keys to survive the merge")
	}
	if !reflect.DeepEqual(out.Blocks[0], doc.Blocks[0]) || !reflect.DeepEqual(out.Blocks[2], doc.Blocks[2]) {
		t.Fatal("expected other blocks to be untouched")
	}
	if doc.Blocks[1].Content != "content b" {
		t.Fatal("expected input document to be untouched")
	}
}

func TestUpdateBlockUnknownIDIsNoop(t *testing.T) {
	doc := testDoc("a")
	content := "x"
	out := UpdateBlock(doc, "missing", BlockPatch{Content: &content})
	if !reflect.DeepEqual(out, doc) {
		t.Fatal("expected unknown id to leave document unchanged")
	}
}

func TestRemoveBlockIsIdempotent(t *testing.T) {
	doc := testDoc("a", "b")
	once := RemoveBlock(doc, "a")
	twice := RemoveBlock(once, "a")
	if !reflect.DeepEqual(blockIDs(once), []string{"b"}) {
		t.Fatalf("unexpected blocks after remove: %v", blockIDs(once))
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatal("second remove must be a no-op")
	}
}

func TestMoveBlockSwapsAndStopsAtBoundaries(t *testing.T) {
	doc := testDoc("x", "y", "z")

	moved := MoveBlock(doc, "y", DirectionUp)
	if !reflect.DeepEqual(blockIDs(moved), []string{"y", "x", "z"}) {
		t.Fatalf("expected [y x z], got %v", blockIDs(moved))
	}

	again := MoveBlock(moved, "y", DirectionUp)
	if !reflect.DeepEqual(blockIDs(again), []string{"y", "x", "z"}) {
		t.Fatalf("moving the first block up must be a no-op, got %v", blockIDs(again))
	}

	down := MoveBlock(moved, "x", DirectionDown)
	if !reflect.DeepEqual(blockIDs(down), []string{"y", "z", "x"}) {
		t.Fatalf("expected [y z x], got %v", blockIDs(down))
	}

	last := MoveBlock(down, "x", DirectionDown)
	if !reflect.DeepEqual(blockIDs(last), []string{"y", "z", "x"}) {
		t.Fatalf("moving the last block down must be a no-op, got %v", blockIDs(last))
	}

	missing := MoveBlock(doc, "nope", DirectionDown)
	if !reflect.DeepEqual(missing, doc) {
		t.Fatal("moving an unknown block must be a no-op")
	}
}

func TestDuplicateBlockInsertsAfterOriginal(t *testing.T) {
	doc := testDoc("a", "b", "c")
	out := DuplicateBlock(doc, "a", "a2")

	if !reflect.DeepEqual(blockIDs(out), []string{"a", "a2", "b", "c"}) {
		t.Fatalf("expected clone at index+1, got %v", blockIDs(out))
	}
	original, clone := out.Blocks[0], out.Blocks[1]
	if clone.Type != original.Type || clone.Content != original.Content || !reflect.DeepEqual(clone.Style, original.Style) {
		t.Fatalf("clone differs from original: %+v vs %+v", clone, original)
	}
	clone.Style[StyleColor] = "#000000"
	if out.Blocks[0].Style[StyleColor] != "#111111" {
		t.Fatal("clone style must not alias the original")
	}
}

func TestApplyThemeCascadesFontAndRepaintsBrandButtons(t *testing.T) {
	modern := themes["modern"]
	doc := Document{ID: "doc", Theme: modern}
	doc = AppendBlock(doc, NewBlock("h", BlockHeader, modern, BlockInput{}))
	doc = AppendBlock(doc, NewBlock("brand", BlockButton, modern, BlockInput{}))
	doc = AppendBlock(doc, NewBlock("custom", BlockButton, modern, BlockInput{Style: Style{StyleBackgroundColor: "#123456"}}))

	forest := themes["forest"]
	out := ApplyTheme(doc, forest)

	if out.Theme != forest {
		t.Fatalf("expected theme to be replaced, got %+v", out.Theme)
	}
	for _, block := range out.Blocks {
		if block.Style[StyleFontFamily] != forest.FontFamily {
			t.Fatalf("block %s font = %q, want %q", block.ID, block.Style[StyleFontFamily], forest.FontFamily)
		}
	}
	brand, _ := findBlock(out, "brand")
	if brand.Style[StyleBackgroundColor] != forest.PrimaryColor {
		t.Fatalf("expected brand button repainted, got %s", brand.Style[StyleBackgroundColor])
	}
	if brand.Style[StyleHoverBackgroundColor] != HoverColor(forest.PrimaryColor) {
		t.Fatalf("expected brand hover repainted, got %s", brand.Style[StyleHoverBackgroundColor])
	}
	custom, _ := findBlock(out, "custom")
	if custom.Style[StyleBackgroundColor] != "#123456" {
		t.Fatalf("expected custom button untouched, got %s", custom.Style[StyleBackgroundColor])
	}
	if doc.Blocks[0].Style[StyleFontFamily] != modern.FontFamily {
		t.Fatal("expected input document to keep its font")
	}
}

func TestDefaultDocumentShape(t *testing.T) {
	doc := DefaultDocument()
	if doc.ID != DefaultDocumentID {
		t.Fatalf("expected id %s, got %s", DefaultDocumentID, doc.ID)
	}
	if !reflect.DeepEqual(blockIDs(doc), []string{"h1", "img1", "d1", "t1", "b1"}) {
		t.Fatalf("unexpected seed blocks %v", blockIDs(doc))
	}
	if len(Themes()) != 10 {
		t.Fatalf("expected 10 built-in themes, got %d", len(Themes()))
	}
	if _, ok := LookupTheme("Midnight"); !ok {
		t.Fatal("expected case-insensitive theme lookup")
	}
}

func TestContextJoinsBlockContent(t *testing.T) {
	doc := testDoc("a", "b")
	if got := doc.Context(); got != "content a content b" {
		t.Fatalf("unexpected context %q", got)
	}
}

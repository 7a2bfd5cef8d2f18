package newsletter

import (
	"sort"
	"strings"
	"time"
)

const DefaultDocumentID = "default-draft"

var themes = map[string]Theme{
	"modern":     {Name: "Modern Blue", PrimaryColor: "#0057FF", BackgroundColor: "#F3F4F6", CanvasColor: "#FFFFFF", FontFamily: "Inter, sans-serif"},
	"nordic":     {Name: "Nordic Clean", PrimaryColor: "#1E293B", BackgroundColor: "#F8FAFC", CanvasColor: "#FFFFFF", FontFamily: "Montserrat, sans-serif"},
	"midnight":   {Name: "Midnight", PrimaryColor: "#38BDF8", BackgroundColor: "#0F172A", CanvasColor: "#1E293B", FontFamily: "Poppins, sans-serif"},
	"editorial":  {Name: "Editorial", PrimaryColor: "#B91C1C", BackgroundColor: "#FAF9F6", CanvasColor: "#FFFFFF", FontFamily: "Playfair Display, serif"},
	"sunset":     {Name: "Sunset Glow", PrimaryColor: "#F59E0B", BackgroundColor: "#FFF7ED", CanvasColor: "#FFFFFF", FontFamily: "Lato, sans-serif"},
	"forest":     {Name: "Professional Forest", PrimaryColor: "#059669", BackgroundColor: "#ECFDF5", CanvasColor: "#FFFFFF", FontFamily: "Roboto, sans-serif"},
	"minimal":    {Name: "Ultra Minimal", PrimaryColor: "#000000", BackgroundColor: "#FFFFFF", CanvasColor: "#FFFFFF", FontFamily: "Inter, sans-serif"},
	"minimalist": {Name: "Minimalist Pure", PrimaryColor: "#171717", BackgroundColor: "#F9FAFB", CanvasColor: "#FFFFFF", FontFamily: "Inter, sans-serif"},
	"bold":       {Name: "Bold Impact", PrimaryColor: "#E11D48", BackgroundColor: "#0F172A", CanvasColor: "#1E293B", FontFamily: "Oswald, sans-serif"},
	"creative":   {Name: "Creative Pulse", PrimaryColor: "#8B5CF6", BackgroundColor: "#FAF5FF", CanvasColor: "#FFFFFF", FontFamily: "Poppins, sans-serif"},
}

// LookupTheme returns a built-in theme by key (e.g. "modern").
func LookupTheme(key string) (Theme, bool) {
	theme, ok := themes[strings.ToLower(strings.TrimSpace(key))]
	return theme, ok
}

// ThemeEntry pairs a catalog key with its theme.
type ThemeEntry struct {
	Key   string `json:"key"`
	Theme Theme  `json:"theme"`
}

// Themes lists the built-in catalog ordered by key.
func Themes() []ThemeEntry {
	entries := make([]ThemeEntry, 0, len(themes))
	for key, theme := range themes {
		entries = append(entries, ThemeEntry{Key: key, Theme: theme})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// DefaultDocument is the starting draft used when nothing has been stored yet.
func DefaultDocument() Document {
	theme := themes["modern"]
	return Document{
		ID:        DefaultDocumentID,
		Title:     "New Episode Announcement",
		UpdatedAt: time.Now().UTC(),
		Theme:     theme,
		Blocks: []Block{
			{
				ID:      "h1",
				Type:    BlockHeader,
				Content: "New Acasting Episode Alert!",
				Style: Style{
					StyleTextAlign:  "center",
					StylePadding:    "20px",
					StyleColor:      "#111827",
					StyleFontSize:   "28px",
					StyleFontWeight: "700",
					StyleFontFamily: theme.FontFamily,
				},
			},
			{
				ID:   "img1",
				Type: BlockImage,
				Src:  "https://picsum.photos/800/400?random=1",
				Style: Style{
					StylePadding:      "0px",
					StyleBorderRadius: "8px",
				},
			},
			{
				ID:   "d1",
				Type: BlockDivider,
				Style: Style{
					StyleMarginTop:    "20px",
					StyleMarginBottom: "20px",
					StyleBorderWidth:  "1px",
					StyleBorderStyle:  "solid",
					StyleBorderColor:  "#E2E8F0",
				},
			},
			{
				ID:      "t1",
				Type:    BlockText,
				Content: "We are thrilled to share our latest podcast episode. In this edition, we dive deep into the future of audio content and how creators in Sweden are leading the way.",
				Style: Style{
					StylePadding:   "20px",
					StyleTextAlign: "left",
					StyleFontSize:  "16px",
					StyleColor:     "#374151",
				},
			},
			{
				ID:      "b1",
				Type:    BlockButton,
				Content: "Listen Now",
				Href:    "https://acasting.se",
				Style: Style{
					StyleBackgroundColor: theme.PrimaryColor,
					StyleColor:           "#FFFFFF",
					StylePadding:         "12px 24px",
					StyleBorderRadius:    "9999px",
					StyleTextAlign:       "center",
					StyleFontWeight:      "600",
				},
			},
		},
	}
}

// NewDocument returns the seed draft under the given id.
func NewDocument(id string) Document {
	doc := DefaultDocument()
	if strings.TrimSpace(id) != "" {
		doc.ID = id
	}
	return doc
}

package editor

import (
	"fmt"
	"strings"
)

type Tab string

const (
	TabBlocks   Tab = "blocks"
	TabSettings Tab = "settings"
	TabAI       Tab = "ai"
)

type PreviewMode string

const (
	PreviewDesktop PreviewMode = "desktop"
	PreviewMobile  PreviewMode = "mobile"
)

// View is the transient UI state of a session. It is never persisted and
// never changes the document.
type View struct {
	SelectedBlockID string      `json:"selectedBlockId,omitempty"`
	ActiveTab       Tab         `json:"activeTab"`
	PreviewMode     PreviewMode `json:"previewMode"`
}

func defaultView() View {
	return View{ActiveTab: TabBlocks, PreviewMode: PreviewDesktop}
}

func ParseTab(value string) (Tab, error) {
	switch tab := Tab(strings.ToLower(strings.TrimSpace(value))); tab {
	case TabBlocks, TabSettings, TabAI:
		return tab, nil
	default:
		return "", fmt.Errorf("unknown tab %q", value)
	}
}

func ParsePreviewMode(value string) (PreviewMode, error) {
	switch mode := PreviewMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case PreviewDesktop, PreviewMobile:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown preview mode %q", value)
	}
}

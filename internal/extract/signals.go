package extract

import "context"

type CSSData struct {
	BackgroundColor string `json:"backgroundColor"`
	HeadingFont     string `json:"headingFont"`
	BodyFont        string `json:"bodyFont"`
	PrimaryColor    string `json:"primaryColor"`
}

// Signals is the raw material collected from a brand website.
type Signals struct {
	Title       string   `json:"title"`
	Screenshots [][]byte `json:"-"`
	TextContent string   `json:"text_content"`
	CSS         CSSData  `json:"css_data"`
	Images      []string `json:"images"`
}

type SignalSource interface {
	Crawl(ctx context.Context, url string) (Signals, error)
}

// DemoSignals is used when the website cannot be crawled.
func DemoSignals() Signals {
	return Signals{
		Title:       "Demo Brand",
		TextContent: "Sample brand text for analysis.",
		CSS: CSSData{
			BackgroundColor: "#FFFFFF",
			HeadingFont:     "Arial, sans-serif",
			BodyFont:        "Helvetica, sans-serif",
			PrimaryColor:    "#333333",
		},
		Images: []string{},
	}
}

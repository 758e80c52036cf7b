// internal/extract/selectors.go
package extract

// Selectors locate history entries on the host page. The host application
// changes its markup without notice; everything here is configuration.
type Selectors struct {
	// Container is an element whose parent holds the entry list.
	Container string `yaml:"container" json:"container"`
	// DateHeader marks a day group header.
	DateHeader string `yaml:"date_header" json:"date_header"`
	// DateAttribute holds the YYYYMMDD key of a day group or entry.
	DateAttribute string `yaml:"date_attribute" json:"date_attribute"`
	// Entry matches a single history entry.
	Entry string `yaml:"entry" json:"entry"`
	// Prompt is the visible (possibly truncated) prompt text.
	Prompt string `yaml:"prompt" json:"prompt"`
	// PromptPrefix is stripped from visible prompt text.
	PromptPrefix string `yaml:"prompt_prefix" json:"prompt_prefix"`
	// Time is the visible timestamp element.
	Time string `yaml:"time" json:"time"`
	// TimeSeparator splits decorative text off the timestamp.
	TimeSeparator string `yaml:"time_separator" json:"time_separator"`
	// DeleteControl carries the complete entry text in its accessible label.
	DeleteControl string `yaml:"delete_control" json:"delete_control"`
	// DeleteLabelPrefix is the fixed text before the entry in the label.
	DeleteLabelPrefix string `yaml:"delete_label_prefix" json:"delete_label_prefix"`
	// EndMarker becomes visible when the list has no more entries.
	EndMarker string `yaml:"end_marker" json:"end_marker"`
}

// DefaultSelectors match the Gemini Apps activity page.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:         `div[jsname="i6CNtf"]`,
		DateHeader:        `h2.rp10kf`,
		DateAttribute:     `data-date`,
		Entry:             `c-wiz`,
		Prompt:            `div[jsname="r4nke"]`,
		PromptPrefix:      `Prompted`,
		Time:              `.H3Q9vf.XTnvW`,
		TimeSeparator:     `•`,
		DeleteControl:     `[aria-label^="Delete activity item"]`,
		DeleteLabelPrefix: `Delete activity item`,
		EndMarker:         `div[jsname="jOfkMb"]`,
	}
}

// Merge fills empty fields of s from defaults.
func (s Selectors) Merge(defaults Selectors) Selectors {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&s.Container, defaults.Container)
	fill(&s.DateHeader, defaults.DateHeader)
	fill(&s.DateAttribute, defaults.DateAttribute)
	fill(&s.Entry, defaults.Entry)
	fill(&s.Prompt, defaults.Prompt)
	fill(&s.PromptPrefix, defaults.PromptPrefix)
	fill(&s.Time, defaults.Time)
	fill(&s.TimeSeparator, defaults.TimeSeparator)
	fill(&s.DeleteControl, defaults.DeleteControl)
	fill(&s.DeleteLabelPrefix, defaults.DeleteLabelPrefix)
	fill(&s.EndMarker, defaults.EndMarker)
	return s
}

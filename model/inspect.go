package model

// PageInfo describes the geometry of one page. Width and height are in
// points with the page rotation applied.
type PageInfo struct {
	Page        int     `json:"page"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Rotation    int     `json:"rotation"`
	Orientation string  `json:"orientation"` // portrait or landscape
}

// OutlineItem is one bookmark. Page is zero when the destination does not
// resolve to a page of the document.
type OutlineItem struct {
	Title    string        `json:"title"`
	Page     int           `json:"page,omitempty"`
	Children []OutlineItem `json:"children"`
}

// Bounds is an annotation rectangle in PDF user space.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Annotation is a page annotation. Type is the PDF subtype, e.g. Text,
// Highlight or Link.
type Annotation struct {
	Page     int     `json:"page"`
	Type     string  `json:"annotation_type"`
	Contents string  `json:"contents,omitempty"`
	Author   string  `json:"author,omitempty"`
	Created  string  `json:"created,omitempty"`
	Modified string  `json:"modified,omitempty"`
	Bounds   *Bounds `json:"bounds,omitempty"`
	Color    string  `json:"color,omitempty"` // #rrggbb
}

// Link is a link annotation pointing either outside the document or to one
// of its pages.
type Link struct {
	Page     int     `json:"page"`
	URL      string  `json:"url,omitempty"`
	DestPage int     `json:"dest_page,omitempty"`
	Bounds   *Bounds `json:"bounds,omitempty"`
}

// Form field types.
const (
	FieldText     = "text"
	FieldDate     = "date"
	FieldCheckBox = "checkbox"
	FieldRadio    = "radio"
	FieldComboBox = "combobox"
	FieldListBox  = "listbox"
)

// FieldOption is one choice of a radio group, combo box or list box.
type FieldOption struct {
	Label      string `json:"label"`
	IsSelected bool   `json:"is_selected"`
}

// FieldProperties holds type specific flags.
type FieldProperties struct {
	IsMultiline   bool `json:"is_multiline,omitempty"`
	IsEditable    bool `json:"is_editable,omitempty"`
	IsMultiselect bool `json:"is_multiselect,omitempty"`
	MaxLength     int  `json:"max_length,omitempty"`
}

// FormField is an interactive form field. Page is the first page showing one
// of its widgets.
type FormField struct {
	Page       int             `json:"page"`
	Pages      []int           `json:"pages,omitempty"`
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	AltName    string          `json:"alt_name,omitempty"`
	Type       string          `json:"field_type"`
	Value      string          `json:"value,omitempty"`
	Values     []string        `json:"values,omitempty"`
	IsChecked  *bool           `json:"is_checked,omitempty"`
	IsReadOnly bool            `json:"is_read_only"`
	Options    []FieldOption   `json:"options,omitempty"`
	Properties FieldProperties `json:"properties"`
}

// FieldValue is a requested change to one form field, addressed by name or
// id. Checked applies to check boxes, Values to list boxes and Value to every
// other type.
type FieldValue struct {
	Name    string   `json:"name"`
	Value   *string  `json:"value,omitempty"`
	Checked *bool    `json:"checked,omitempty"`
	Values  []string `json:"values,omitempty"`
}

// SkippedField reports a requested change that was not applied.
type SkippedField struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FillReport summarizes a form fill.
type FillReport struct {
	Filled  int            `json:"fields_filled"`
	Skipped []SkippedField `json:"fields_skipped"`
}

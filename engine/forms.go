package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/form"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

// exportForm returns the document's form, or nil when it has no fields.
func exportForm(data []byte, password string) (*form.FormGroup, error) {
	conf := newConfig(password)
	conf.Cmd = pdfmodel.EXPORTFORMFIELDS
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, classify("read form failed", err)
	}
	if ctx.Form == nil {
		return nil, nil
	}
	o, found := ctx.Form.Find("Fields")
	if !found {
		return nil, nil
	}
	if fields, err := ctx.DereferenceArray(o); err != nil || len(fields) == 0 {
		return nil, nil
	}

	group, ok, err := form.ExportForm(ctx.XRefTable, "")
	if err != nil {
		return nil, classify("export form failed", err)
	}
	if !ok || len(group.Forms) == 0 {
		return nil, nil
	}
	return group, nil
}

// FormFields lists the interactive form fields ordered by page.
func (e *PDFCPU) FormFields(data []byte, password string) ([]model.FormField, error) {
	group, err := exportForm(data, password)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return []model.FormField{}, nil
	}
	return formFields(group.Forms[0]), nil
}

func formFields(f form.Form) []model.FormField {
	var out []model.FormField
	add := func(pages []int, id, name, alt, typ string, locked bool) *model.FormField {
		field := model.FormField{Pages: pages, ID: id, Name: name, AltName: alt, Type: typ, IsReadOnly: locked}
		if len(pages) > 0 {
			field.Page = pages[0]
		}
		out = append(out, field)
		return &out[len(out)-1]
	}

	for _, tf := range f.TextFields {
		field := add(tf.Pages, tf.ID, tf.Name, tf.AltName, model.FieldText, tf.Locked)
		field.Value = tf.Value
		field.Properties = model.FieldProperties{IsMultiline: tf.Multiline, MaxLength: tf.MaxLen}
	}
	for _, df := range f.DateFields {
		field := add(df.Pages, df.ID, df.Name, df.AltName, model.FieldDate, df.Locked)
		field.Value = df.Value
	}
	for _, cb := range f.CheckBoxes {
		field := add(cb.Pages, cb.ID, cb.Name, cb.AltName, model.FieldCheckBox, cb.Locked)
		checked := cb.Value
		field.IsChecked = &checked
	}
	for _, rb := range f.RadioButtonGroups {
		field := add(rb.Pages, rb.ID, rb.Name, rb.AltName, model.FieldRadio, rb.Locked)
		field.Value = rb.Value
		field.Options = options(rb.Options, rb.Value)
	}
	for _, cb := range f.ComboBoxes {
		field := add(cb.Pages, cb.ID, cb.Name, cb.AltName, model.FieldComboBox, cb.Locked)
		field.Value = cb.Value
		field.Options = options(cb.Options, cb.Value)
		field.Properties.IsEditable = cb.Editable
	}
	for _, lb := range f.ListBoxes {
		field := add(lb.Pages, lb.ID, lb.Name, lb.AltName, model.FieldListBox, lb.Locked)
		field.Values = lb.Values
		field.Options = options(lb.Options, lb.Values...)
		field.Properties.IsMultiselect = lb.Multi
	}

	// ids are object numbers, so numeric order is document order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	if out == nil {
		out = []model.FormField{}
	}
	return out
}

func options(labels []string, selected ...string) []model.FieldOption {
	opts := make([]model.FieldOption, len(labels))
	for i, l := range labels {
		opts[i] = model.FieldOption{Label: l, IsSelected: slices.Contains(selected, l)}
	}
	return opts
}

// FillForm sets the requested fields and returns the new document. Requests
// naming unknown or read-only fields, or carrying a value the field cannot
// take, are reported in the FillReport and do not fail the call. When nothing
// changes the input is returned unchanged.
func (e *PDFCPU) FillForm(data []byte, values []model.FieldValue, password string) ([]byte, model.FillReport, error) {
	report := model.FillReport{Skipped: []model.SkippedField{}}

	group, err := exportForm(data, password)
	if err != nil {
		return nil, report, err
	}
	if group == nil {
		return nil, report, apperrors.New(apperrors.KindInvalidArgument, "document has no form fields")
	}

	var changes form.Form
	for _, v := range values {
		if reason := applyValue(group.Forms[0], &changes, v); reason != "" {
			report.Skipped = append(report.Skipped, model.SkippedField{Name: v.Name, Reason: reason})
			continue
		}
		report.Filled++
	}
	if report.Filled == 0 {
		return data, report, nil
	}

	group.Forms = []form.Form{changes}
	payload, err := json.Marshal(group)
	if err != nil {
		return nil, report, apperrors.Wrap(apperrors.KindInternal, "encode form values failed", err)
	}

	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(data), bytes.NewReader(payload), &out, newConfig(password)); err != nil {
		if errors.Is(err, api.ErrNoFormFieldsAffected) {
			return data, report, nil
		}
		return nil, report, classify("fill form failed", err)
	}
	return out.Bytes(), report, nil
}

// applyValue records v against the matching field of current in changes and
// returns a skip reason, or "" when the value was accepted.
func applyValue(current form.Form, changes *form.Form, v model.FieldValue) string {
	if v.Name == "" {
		return "field name is required"
	}
	matches := func(id, name string) bool { return name == v.Name || id == v.Name }

	for _, f := range current.TextFields {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		if v.Value == nil {
			return "text field needs a value"
		}
		c := *f
		c.Value = *v.Value
		changes.TextFields = append(changes.TextFields, &c)
		return ""
	}
	for _, f := range current.DateFields {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		if v.Value == nil {
			return "date field needs a value"
		}
		c := *f
		c.Value = *v.Value
		changes.DateFields = append(changes.DateFields, &c)
		return ""
	}
	for _, f := range current.CheckBoxes {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		checked, ok := checkedValue(v)
		if !ok {
			return "check box needs checked or a boolean value"
		}
		c := *f
		c.Value = checked
		changes.CheckBoxes = append(changes.CheckBoxes, &c)
		return ""
	}
	for _, f := range current.RadioButtonGroups {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		if v.Value == nil || !slices.Contains(f.Options, *v.Value) {
			return "value is not one of the field options"
		}
		c := *f
		c.Value = *v.Value
		changes.RadioButtonGroups = append(changes.RadioButtonGroups, &c)
		return ""
	}
	for _, f := range current.ComboBoxes {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		if v.Value == nil || !f.Editable && !slices.Contains(f.Options, *v.Value) {
			return "value is not one of the field options"
		}
		c := *f
		c.Value = *v.Value
		changes.ComboBoxes = append(changes.ComboBoxes, &c)
		return ""
	}
	for _, f := range current.ListBoxes {
		if !matches(f.ID, f.Name) {
			continue
		}
		if f.Locked {
			return "field is read-only"
		}
		selected := v.Values
		if selected == nil && v.Value != nil {
			selected = []string{*v.Value}
		}
		if len(selected) == 0 {
			return "list box needs values"
		}
		if len(selected) > 1 && !f.Multi {
			return "list box allows a single selection"
		}
		for _, s := range selected {
			if !slices.Contains(f.Options, s) {
				return "value is not one of the field options"
			}
		}
		c := *f
		c.Values = selected
		changes.ListBoxes = append(changes.ListBoxes, &c)
		return ""
	}
	return "no such field"
}

func checkedValue(v model.FieldValue) (bool, bool) {
	if v.Checked != nil {
		return *v.Checked, true
	}
	if v.Value != nil {
		b, err := strconv.ParseBool(*v.Value)
		return b, err == nil
	}
	return false, false
}

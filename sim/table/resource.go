package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Resource file extensions, in lookup order.
const (
	ExtStab = ".stab"
	ExtYAML = ".stab.yaml"
)

// Locator resolves resource names to files in an ordered list of directories.
type Locator struct {
	Dirs []string
}

// NewLocator returns a Locator searching dirs in order. Empty entries are skipped.
func NewLocator(dirs ...string) Locator {
	var kept []string
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			kept = append(kept, d)
		}
	}
	return Locator{Dirs: kept}
}

// Find returns the path of the first resource file named name (binary form
// before YAML form) in the configured directories.
func (l Locator) Find(name string) (string, error) {
	for _, dir := range l.Dirs {
		for _, ext := range []string{ExtStab, ExtYAML} {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", resourceErrorf(name, os.ErrNotExist, "not found in %v", l.Dirs)
}

// AxisSpec is one `name(unit)` token of an axis specification string.
type AxisSpec struct {
	Name string
	Unit string
}

// ParseAxisSpec parses a comma-separated list of `name(unit)` tokens, such as
// "lambda(m),Z(1),t(yr)". The first entry is the spectral axis.
func ParseAxisSpec(spec string) ([]AxisSpec, error) {
	var out []AxisSpec
	for _, tok := range strings.Split(spec, ",") {
		s, err := parseSpecToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSpecToken(tok string) (AxisSpec, error) {
	tok = strings.TrimSpace(tok)
	open := strings.IndexByte(tok, '(')
	if open <= 0 || !strings.HasSuffix(tok, ")") {
		return AxisSpec{}, fmt.Errorf("malformed axis spec token %q, want name(unit)", tok)
	}
	return AxisSpec{Name: tok[:open], Unit: tok[open+1 : len(tok)-1]}, nil
}

// ReadFile decodes the stored table at path, choosing the codec by extension.
func ReadFile(path, quantity string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, resourceErrorf(path, err, "open")
	}
	defer f.Close()
	name := filepath.Base(path)
	if strings.HasSuffix(path, ExtYAML) || strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return DecodeYAML(name, f)
	}
	return DecodeStab(name, f, quantity)
}

// Open locates and loads the named resource, verifies that its axes match
// axisSpec and its quantity matches valueSpec (a single `name(unit)` token), and
// optionally normalizes every spectral slice to unit integral. Any failure is a
// *ResourceError.
func Open(loc Locator, name, axisSpec, valueSpec string, normalize bool) (*Table, error) {
	specs, err := ParseAxisSpec(axisSpec)
	if err != nil {
		return nil, resourceErrorf(name, err, "invalid axis spec")
	}
	value, err := parseSpecToken(valueSpec)
	if err != nil {
		return nil, resourceErrorf(name, err, "invalid value spec")
	}

	path, err := loc.Find(name)
	if err != nil {
		return nil, err
	}
	t, err := ReadFile(path, value.Name)
	if err != nil {
		return nil, err
	}
	t.name = name

	if len(specs) != len(t.axes) {
		return nil, resourceErrorf(name, nil, "resource has %d axes, expected %d (%s)", len(t.axes), len(specs), axisSpec)
	}
	for k, s := range specs {
		if ax := t.axes[k]; ax.Name != s.Name || ax.Unit != s.Unit {
			return nil, resourceErrorf(name, nil, "axis %d is %s(%s), expected %s(%s)", k, ax.Name, ax.Unit, s.Name, s.Unit)
		}
	}
	if t.quantity.Name != value.Name || t.quantity.Unit != value.Unit {
		return nil, resourceErrorf(name, nil, "quantity is %s(%s), expected %s(%s)",
			t.quantity.Name, t.quantity.Unit, value.Name, value.Unit)
	}
	if normalize {
		t.normalizeSlices()
	}

	logrus.Infof("Loaded table %s from %s: %d axes, %d values, spectral range [%g, %g] %s",
		name, path, len(t.axes), len(t.values), t.AxisRange(0).Min, t.AxisRange(0).Max, t.axes[0].Unit)
	return t, nil
}

package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Mode int

const (
	ModeOriginal Mode = iota
	ModeCustom
	ModeMin
	ModeMax
)

func (m Mode) String() string {
	switch m {
	case ModeOriginal:
		return "original"
	case ModeCustom:
		return "custom"
	case ModeMin:
		return "min"
	case ModeMax:
		return "max"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type Filter int

// FilterTriangle is first so the zero value is the default filter.
const (
	FilterTriangle Filter = iota
	FilterNearest
	FilterCatmullRom
	FilterLanczos3
	FilterGaussian
)

const DefaultFilter = FilterTriangle

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterTriangle:
		return "triangle"
	case FilterCatmullRom:
		return "catmullrom"
	case FilterLanczos3:
		return "lanczos3"
	case FilterGaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

var filterNames = map[string]Filter{
	"nearest":    FilterNearest,
	"low":        FilterNearest,
	"fast":       FilterNearest,
	"linear":     FilterTriangle,
	"good":       FilterTriangle,
	"triangle":   FilterTriangle,
	"cubic":      FilterCatmullRom,
	"better":     FilterCatmullRom,
	"catmullrom": FilterCatmullRom,
	"lanczos":    FilterLanczos3,
	"best":       FilterLanczos3,
	"slow":       FilterLanczos3,
	"gaussian":   FilterGaussian,
	"blur":       FilterGaussian,
}

// ParseFilter maps a filter name or alias to a Filter. An empty name yields
// DefaultFilter.
func ParseFilter(name string) (Filter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultFilter, nil
	}
	f, ok := filterNames[name]
	if !ok {
		return DefaultFilter, fmt.Errorf("%w: unknown filter %q", ErrConfiguration, name)
	}
	return f, nil
}

type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: resolution %s must be positive", ErrConfiguration, r)
	}
	return nil
}

var resolutionPattern = regexp.MustCompile(`^([0-9]{3,4})x([0-9]{3,4})$`)

// ParseResolution parses "<width>x<height>" where both sides have three or
// four digits.
func ParseResolution(s string) (Resolution, error) {
	m := resolutionPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Resolution{}, fmt.Errorf("%w: resolution %q must look like 800x600", ErrConfiguration, s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	r := Resolution{Width: w, Height: h}
	if err := r.Validate(); err != nil {
		return Resolution{}, err
	}
	return r, nil
}

// ResizePolicy says how every page of a run is resized. Values are only
// built through the constructors below, so a custom policy always carries a
// valid target. The zero value is the original-size policy with the default
// filter.
type ResizePolicy struct {
	mode   Mode
	target Resolution
	filter Filter
}

func OriginalPolicy(filter Filter) ResizePolicy {
	return ResizePolicy{mode: ModeOriginal, filter: filter}
}

func CustomPolicy(target Resolution, filter Filter) (ResizePolicy, error) {
	if err := target.Validate(); err != nil {
		return ResizePolicy{}, err
	}
	return ResizePolicy{mode: ModeCustom, target: target, filter: filter}, nil
}

func MinPolicy(filter Filter) ResizePolicy {
	return ResizePolicy{mode: ModeMin, filter: filter}
}

func MaxPolicy(filter Filter) ResizePolicy {
	return ResizePolicy{mode: ModeMax, filter: filter}
}

// ParsePolicy builds a policy from the resize and filter option values. An
// empty mode means no resizing.
func ParsePolicy(mode, filter string) (ResizePolicy, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return ResizePolicy{}, err
	}

	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "", "original":
		return OriginalPolicy(f), nil
	case "min":
		return MinPolicy(f), nil
	case "max":
		return MaxPolicy(f), nil
	default:
		res, err := ParseResolution(m)
		if err != nil {
			return ResizePolicy{}, err
		}
		return CustomPolicy(res, f)
	}
}

func (p ResizePolicy) Mode() Mode {
	return p.mode
}

// Target returns the custom resolution; ok is false for every other mode.
func (p ResizePolicy) Target() (Resolution, bool) {
	return p.target, p.mode == ModeCustom
}

func (p ResizePolicy) Filter() Filter {
	return p.filter
}

func (p ResizePolicy) Resizes() bool {
	return p.mode != ModeOriginal
}

func (p ResizePolicy) String() string {
	if p.mode == ModeCustom {
		return fmt.Sprintf("mode=%s target=%s filter=%s", p.mode, p.target, p.filter)
	}
	return fmt.Sprintf("mode=%s filter=%s", p.mode, p.filter)
}

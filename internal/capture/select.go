package capture

import "fmt"

// InputSpec names exactly one of the mutually exclusive input selections
// from §6: a live interface, a single file (or stdin via "-"), a file
// list, or a rolling numeric-suffixed series. Leave every field but the
// one being selected at its zero value.
type InputSpec struct {
	Iface   string
	File    string
	List    string
	Rolling string

	Live LiveConfig
}

// Open resolves spec to a concrete Source. Exactly one of Iface, File,
// List or Rolling must be set (§6 "Input selection (mutually
// exclusive)").
func Open(spec InputSpec) (Source, error) {
	set := 0
	if spec.Iface != "" {
		set++
	}
	if spec.File != "" {
		set++
	}
	if spec.List != "" {
		set++
	}
	if spec.Rolling != "" {
		set++
	}
	if set == 0 {
		return nil, fmt.Errorf("capture: no input selected (need one of -i, -r, -R, -D)")
	}
	if set > 1 {
		return nil, fmt.Errorf("capture: -i, -r, -R and -D are mutually exclusive")
	}

	switch {
	case spec.Iface != "":
		cfg := spec.Live
		cfg.Iface = spec.Iface
		return openLive(cfg)
	case spec.File != "":
		return OpenFile(spec.File)
	case spec.List != "":
		return OpenList(spec.List)
	default:
		rs, err := ParseRollingSpec(spec.Rolling)
		if err != nil {
			return nil, err
		}
		return OpenRolling(rs)
	}
}

package rules

type Settings map[string]interface{}

// Merge copies every setting from o, overwriting existing keys.
func (s Settings) Merge(o Settings) {
	for k, v := range o {
		s[k] = v
	}
}

func (s Settings) String(k string) (string, bool) {
	val, found := s[k]

	if found {
		s, ok := val.(string)
		return s, ok && len(s) > 0
	} else {
		return "", false
	}
}

func (s Settings) Boolean(k string) (bool, bool) {
	val, found := s[k]

	if found {
		b, ok := val.(bool)
		return b, ok
	} else {
		return false, false
	}
}

func (s Settings) Int(k string) (int, bool) {
	val, found := s[k]

	if !found {
		return 0, false
	}

	switch i := val.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case uint64:
		return int(i), true
	default:
		return 0, false
	}
}

// Float also accepts integers, as YAML decodes whole numbers without a decimal point as int.
func (s Settings) Float(k string) (float64, bool) {
	val, found := s[k]

	if !found {
		return 0.0, false
	}

	switch f := val.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	default:
		return 0.0, false
	}
}

package res

import "testing"

// Test parseGroup panics when expected
func TestParseGroup(t *testing.T) {
	tbl := []struct {
		Group   string
		Pattern string
		Panic   bool
	}{
		// Valid groups
		{"", "test", false},
		{"test", "test", false},
		{"test", "test.$foo", false},
		{"test.${foo}", "test.$foo", false},
		{"${foo}", "test.$foo", false},
		{"${foo}.test", "test.$foo", false},
		{"${foo}${bar}", "test.$foo.$bar", false},
		{"${bar}${foo}", "test.$foo.$bar", false},
		{"${foo}.${bar}", "test.$foo.$bar.>", false},
		{"${foo}${foo}", "test.$foo.$bar", false},

		// Invalid groups
		{"$", "test.$foo", true},
		{"${", "test.$foo", true},
		{"${foo", "test.$foo", true},
		{"${}", "test.$foo", true},
		{"${$foo}", "test.$foo", true},
		{"${bar}", "test.$foo", true},
	}

	for _, l := range tbl {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if !l.Panic {
						t.Errorf("expected parseGroup not to panic, but it did:\n\tpanic   : %s\n\tgroup   : %s\n\tpattern : %s", r, l.Group, l.Pattern)
					}
				} else {
					if l.Panic {
						t.Errorf("expected parseGroup to panic, but it didn't\n\tgroup   : %s\n\tpattern : %s", l.Group, l.Pattern)
					}
				}
			}()

			parseGroup(l.Group, l.Pattern)
		}()
	}
}

// Test group toString resolves tags against the resource name parts
func TestGroupToString(t *testing.T) {
	tbl := []struct {
		Group        string
		Pattern      string
		ResourceName string
		Expected     string
	}{
		{"", "test", "test", "test"},
		{"", "test.$foo", "test.42", "test.42"},
		{"foo", "test", "test", "foo"},
		{"bar", "test.$foo", "test.42", "bar"},
		{"${foo}", "test.$foo", "test.42", "42"},
		{"${foo}.bar", "test.$foo", "test.42", "42.bar"},
		{"bar.${foo}", "test.$foo", "test.42", "bar.42"},
		{"${foo}${bar}", "test.$foo.$bar", "test.42.baz", "42baz"},
		{"${bar}.${foo}", "test.$foo.$bar", "test.42.baz", "baz.42"},
		{"${foo}${foo}", "test.$foo", "test.42", "4242"},
	}

	for _, l := range tbl {
		gr := parseGroup(l.Group, l.Pattern)
		s := gr.toString(l.ResourceName, splitPattern(l.ResourceName))
		if s != l.Expected {
			t.Errorf("expected group %#v on pattern %#v to resolve %#v to %#v, but it resolved to %#v", l.Group, l.Pattern, l.ResourceName, l.Expected, s)
		}
	}
}

package toolkit

import "runtime"

// Family describes one toolchain family known to the command line
type Family struct {
	// Key identifies the family in command line kit expressions
	Key string
	// DisplayName is the human readable family name
	DisplayName string
	// Platforms lists the operating systems the family works on
	Platforms []string
}

// Supported reports whether the family works on this platform
func (f Family) Supported() bool {
	for _, p := range f.Platforms {
		if p == runtime.GOOS {
			return true
		}
	}
	return false
}

// families is the closed registry of toolchain families, in scan order
var families = []Family{
	{Key: "gcc", DisplayName: "GCC", Platforms: []string{"linux"}},
	{Key: "msvc", DisplayName: "Visual Studio", Platforms: []string{"windows"}},
	{Key: "oneapi", DisplayName: "Intel oneAPI", Platforms: []string{"linux", "windows"}},
	{Key: "script", DisplayName: "Environment script", Platforms: []string{"linux", "darwin", "windows"}},
}

// Families returns the registered toolchain families in scan order
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// FamilyByKey looks up a family by its kit expression key
func FamilyByKey(key string) (Family, bool) {
	for _, f := range families {
		if f.Key == key {
			return f, true
		}
	}
	return Family{}, false
}

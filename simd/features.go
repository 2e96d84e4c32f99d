package simd

import (
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Features describes the vector units of the host CPU.
type Features struct {
	Brand  string   `json:"brand"`
	Vendor string   `json:"vendor"`
	Units  []string `json:"units"`
}

var vectorUnits = []struct {
	name string
	id   cpuid.FeatureID
}{
	{"SSE2", cpuid.SSE2},
	{"SSE4.1", cpuid.SSE4},
	{"AVX", cpuid.AVX},
	{"AVX2", cpuid.AVX2},
	{"AVX512F", cpuid.AVX512F},
	{"ASIMD", cpuid.ASIMD},
}

// HostFeatures reports the 128-bit and wider vector units of this machine.
func HostFeatures() Features {
	f := Features{
		Brand:  cpuid.CPU.BrandName,
		Vendor: cpuid.CPU.VendorString,
	}
	for _, u := range vectorUnits {
		if cpuid.CPU.Supports(u.id) {
			f.Units = append(f.Units, u.name)
		}
	}
	return f
}

func (f Features) String() string {
	units := "none"
	if len(f.Units) > 0 {
		units = strings.Join(f.Units, ",")
	}
	return "brand=" + f.Brand + " vector=" + units
}

package simd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// EnvOverride names the environment variable that forces an ISA.
const EnvOverride = "HNSWDB_SIMD"

// ISA represents a SIMD instruction set architecture.
type ISA uint8

const (
	// Generic represents pure Go implementation (no SIMD).
	Generic ISA = iota
	// NEON represents ARM64 NEON (128-bit SIMD, ASIMD).
	NEON
	// SVE2 represents ARM64 SVE2 (scalable vectors, 128-2048 bit).
	SVE2
	// AVX2 represents x86-64 AVX2 (256-bit SIMD with FMA).
	AVX2
	// AVX512 represents x86-64 AVX-512 (512-bit SIMD).
	AVX512
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case NEON:
		return "neon"
	case SVE2:
		return "sve2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// Lanes returns the number of float32 lanes of one vector register.
func (i ISA) Lanes() int {
	switch i {
	case AVX512:
		return 16
	case AVX2:
		return 8
	case NEON, SVE2:
		return 4
	default:
		return 1
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "neon":
		return NEON, true
	case "sve2":
		return SVE2, true
	case "avx2":
		return AVX2, true
	case "avx512":
		return AVX512, true
	default:
		return Generic, false
	}
}

// Package-level state, written once by the platform init functions.
var (
	activeISA   ISA
	hasOverride bool

	hasASIMD    bool // ARM64 NEON
	hasSVE2     bool // ARM64 SVE2
	hasAVX2     bool // x86-64 AVX2 + FMA
	hasAVX512F  bool // x86-64 AVX-512 Foundation
	hasAVX512BW bool // x86-64 AVX-512 Byte/Word
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv(EnvOverride); override != "" {
		if isa, ok := ParseISA(override); ok {
			hasOverride = true
			if isISAAvailable(isa) {
				activeISA = isa
				selectKernels(activeISA)
				return
			}
			// Unavailable override falls through to auto-detection.
		}
	}

	activeISA = selectBestISA()
	selectKernels(activeISA)
}

func isISAAvailable(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case NEON:
		return hasASIMD
	case SVE2:
		return hasSVE2
	case AVX2:
		return hasAVX2
	case AVX512:
		return hasAVX512F && hasAVX512BW
	default:
		return false
	}
}

func selectBestISA() ISA {
	switch runtime.GOARCH {
	case "arm64":
		return selectBestARM64()
	case "amd64":
		return selectBestAMD64()
	default:
		return Generic
	}
}

func selectBestARM64() ISA {
	// Apple's SVE2 path is slower than NEON.
	preferNEON := runtime.GOOS == "darwin"

	if hasSVE2 && !preferNEON {
		return SVE2
	}
	if hasASIMD {
		return NEON
	}
	return Generic
}

func selectBestAMD64() ISA {
	if hasAVX512F && hasAVX512BW {
		return AVX512
	}
	if hasAVX2 {
		return AVX2
	}
	return Generic
}

// ActiveISA returns the currently active ISA.
func ActiveISA() ISA {
	return activeISA
}

// L1DataCacheBytes returns the per-core L1 data cache size, or 32 KiB when
// the CPU does not report it.
func L1DataCacheBytes() int {
	if l1 := cpuid.CPU.Cache.L1D; l1 > 0 {
		return l1
	}
	return 32 << 10
}

// availableISAs lists the detected instruction sets, best last.
func availableISAs() []string {
	var names []string
	for _, isa := range []ISA{NEON, SVE2, AVX2, AVX512} {
		if isISAAvailable(isa) {
			names = append(names, isa.String())
		}
	}
	if len(names) == 0 {
		return []string{Generic.String()}
	}
	return names
}

// Describe returns a one-line description of the CPU and the active kernels.
func Describe() string {
	brand := strings.TrimSpace(cpuid.CPU.BrandName)
	if brand == "" {
		brand = runtime.GOARCH
	}
	return fmt.Sprintf("%s cores=%d l1d=%d isa=%s lanes=%d override=%t available=%s",
		brand, cpuid.CPU.PhysicalCores, L1DataCacheBytes(), activeISA, activeISA.Lanes(),
		hasOverride, strings.Join(availableISAs(), ","))
}

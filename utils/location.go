package utils

import (
    "fmt"
    "hash/fnv"
)

// Roughly one kilometre in degrees of latitude.
const fuzzRadiusDeg = 0.009

// FuzzCoordinates returns a privacy-preserving approximation of a post's
// location. The offset is derived from the post's identity, so the same post
// always maps to the same fuzzed point and repeated reads cannot be averaged
// back to the true coordinates. Exact coordinates are stored encrypted and
// never served publicly.
func FuzzCoordinates(kind string, id uint, lat, lon float64) (float64, float64) {
    h := fnv.New64a()
    fmt.Fprintf(h, "%s:%d", kind, id)
    seed := h.Sum64()

    // Two independent offsets in [-fuzzRadiusDeg, +fuzzRadiusDeg].
    latOff := (float64(seed&0xFFFF)/0xFFFF*2 - 1) * fuzzRadiusDeg
    lonOff := (float64((seed>>16)&0xFFFF)/0xFFFF*2 - 1) * fuzzRadiusDeg

    fuzzedLat := clamp(lat+latOff, -90, 90)
    fuzzedLon := lon + lonOff
    if fuzzedLon > 180 {
        fuzzedLon -= 360
    } else if fuzzedLon < -180 {
        fuzzedLon += 360
    }
    return fuzzedLat, fuzzedLon
}

func clamp(v, lo, hi float64) float64 {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

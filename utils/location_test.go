package utils

import (
    "math"
    "testing"
)

func TestFuzzCoordinatesDeterministic(t *testing.T) {
    lat1, lon1 := FuzzCoordinates("offer", 42, 41.0082, 28.9784)
    lat2, lon2 := FuzzCoordinates("offer", 42, 41.0082, 28.9784)

    if lat1 != lat2 || lon1 != lon2 {
        t.Errorf("same post must always fuzz to the same point: (%f,%f) vs (%f,%f)", lat1, lon1, lat2, lon2)
    }
}

func TestFuzzCoordinatesWithinRadius(t *testing.T) {
    for id := uint(1); id <= 100; id++ {
        lat, lon := FuzzCoordinates("offer", id, 41.0, 29.0)
        if math.Abs(lat-41.0) > fuzzRadiusDeg {
            t.Errorf("id %d: latitude offset %f exceeds radius", id, lat-41.0)
        }
        if math.Abs(lon-29.0) > fuzzRadiusDeg {
            t.Errorf("id %d: longitude offset %f exceeds radius", id, lon-29.0)
        }
    }
}

func TestFuzzCoordinatesDiffersAcrossPosts(t *testing.T) {
    lat1, lon1 := FuzzCoordinates("offer", 1, 41.0, 29.0)
    lat2, lon2 := FuzzCoordinates("offer", 2, 41.0, 29.0)
    lat3, lon3 := FuzzCoordinates("request", 1, 41.0, 29.0)

    if lat1 == lat2 && lon1 == lon2 {
        t.Error("different posts at the same point should fuzz differently")
    }
    if lat1 == lat3 && lon1 == lon3 {
        t.Error("offer and request with the same id should fuzz differently")
    }
}

func TestFuzzCoordinatesStaysInBounds(t *testing.T) {
    lat, _ := FuzzCoordinates("offer", 7, 89.999, 0)
    if lat > 90 {
        t.Errorf("latitude out of bounds: %f", lat)
    }
    _, lon := FuzzCoordinates("offer", 7, 0, 179.999)
    if lon > 180 || lon < -180 {
        t.Errorf("longitude out of bounds: %f", lon)
    }
}

// Copyright 2025 The ChapaUY Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import "math"

// Krasovsky 1940 ellipsoid, as used by the GCJ02 offset.
const (
	krasovskyA  = 6378245.0
	krasovskyEE = 0.00669342162296594323

	bdXPi = math.Pi * 3000.0 / 180.0

	bdOffsetLng = 0.0065
	bdOffsetLat = 0.006
)

// Rough bounding box of mainland China, the domain of the GCJ02 offset.
const (
	chinaMinLng = 72.004
	chinaMaxLng = 137.8347
	chinaMinLat = 0.8293
	chinaMaxLat = 55.8271
)

// InChina reports whether p falls inside the region where GCJ02 applies.
func InChina(p Point) bool {
	return p.Lng >= chinaMinLng && p.Lng <= chinaMaxLng &&
		p.Lat >= chinaMinLat && p.Lat <= chinaMaxLat
}

// Transform converts a WGS84 point into the target system. Unknown targets
// and WGS84 return p unchanged. Outside mainland China the GCJ02 step is the
// identity, so GCJ02 returns p and BD09 carries only the Baidu offset.
func Transform(p Point, target System) Point {
	switch target {
	case GCJ02:
		return WGS84ToGCJ02(p)
	case BD09:
		return GCJ02ToBD09(WGS84ToGCJ02(p))
	default:
		return p
	}
}

// ToWGS84 is the inverse of Transform.
func ToWGS84(p Point, from System) Point {
	switch from {
	case GCJ02:
		return GCJ02ToWGS84(p)
	case BD09:
		return GCJ02ToWGS84(BD09ToGCJ02(p))
	default:
		return p
	}
}

// WGS84ToGCJ02 applies the GCJ02 offset.
func WGS84ToGCJ02(p Point) Point {
	if !InChina(p) {
		return p
	}

	dLat, dLng := gcjDelta(p)

	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// GCJ02ToWGS84 removes the GCJ02 offset by fixed-point iteration; the
// result round-trips to within 1e-9 degrees.
func GCJ02ToWGS84(p Point) Point {
	if !InChina(p) {
		return p
	}

	const (
		maxIterations = 30
		epsilon       = 1e-12
	)

	w := p

	for range maxIterations {
		g := WGS84ToGCJ02(w)
		dLat, dLng := g.Lat-p.Lat, g.Lng-p.Lng
		w.Lat -= dLat
		w.Lng -= dLng

		if math.Abs(dLat) < epsilon && math.Abs(dLng) < epsilon {
			break
		}
	}

	return w
}

// GCJ02ToBD09 applies the Baidu offset on top of GCJ02. It has no region
// restriction of its own.
func GCJ02ToBD09(p Point) Point {
	x, y := p.Lng, p.Lat
	z := math.Sqrt(x*x+y*y) + 0.00002*math.Sin(y*bdXPi)
	theta := math.Atan2(y, x) + 0.000003*math.Cos(x*bdXPi)

	return Point{
		Lat: z*math.Sin(theta) + bdOffsetLat,
		Lng: z*math.Cos(theta) + bdOffsetLng,
	}
}

// BD09ToGCJ02 is the closed-form approximate inverse of GCJ02ToBD09.
func BD09ToGCJ02(p Point) Point {
	x, y := p.Lng-bdOffsetLng, p.Lat-bdOffsetLat
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*bdXPi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*bdXPi)

	return Point{
		Lat: z * math.Sin(theta),
		Lng: z * math.Cos(theta),
	}
}

func gcjDelta(p Point) (float64, float64) {
	x, y := p.Lng-105.0, p.Lat-35.0
	dLat := offsetLat(x, y)
	dLng := offsetLng(x, y)

	radLat := p.Lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - krasovskyEE*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((krasovskyA * (1 - krasovskyEE)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (krasovskyA / sqrtMagic * math.Cos(radLat) * math.Pi)

	return dLat, dLng
}

func offsetLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0

	return ret
}

func offsetLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0

	return ret
}

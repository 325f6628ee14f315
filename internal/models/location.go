package models

import "math"

const earthRadiusMiles = 3958.8

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMiles is the haversine distance between two points.
func (l Location) DistanceMiles(other Location) float64 {
	lat1 := degreesToRadians(l.Lat)
	lon1 := degreesToRadians(l.Lon)
	lat2 := degreesToRadians(other.Lat)
	lon2 := degreesToRadians(other.Lon)

	dlat := lat2 - lat1
	dlon := lon2 - lon1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

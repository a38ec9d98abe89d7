package resolver

import (
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/geo"
)

// FSA centroid tables, used when the geocoder is down or has no candidate.
// An FSA (forward sortation area) is the first three characters of a postal
// code; its centroid is coarse but always lands inside the right borough, so
// sector-polygon lookups still resolve correctly.

var montrealFSACentroids = map[string]geo.Point{
	"H1A": {Latitude: 45.6205, Longitude: -73.6049},
	"H1B": {Latitude: 45.6275, Longitude: -73.5699},
	"H1C": {Latitude: 45.6358, Longitude: -73.5499},
	"H1E": {Latitude: 45.6175, Longitude: -73.5499},
	"H1G": {Latitude: 45.5958, Longitude: -73.5849},
	"H1H": {Latitude: 45.5832, Longitude: -73.5949},
	"H1J": {Latitude: 45.5872, Longitude: -73.5449},
	"H1K": {Latitude: 45.5732, Longitude: -73.5549},
	"H1L": {Latitude: 45.5642, Longitude: -73.5349},
	"H1M": {Latitude: 45.5552, Longitude: -73.5549},
	"H1N": {Latitude: 45.5462, Longitude: -73.5749},
	"H1P": {Latitude: 45.5372, Longitude: -73.5649},
	"H1R": {Latitude: 45.5252, Longitude: -73.5849},
	"H1S": {Latitude: 45.5432, Longitude: -73.5949},
	"H1T": {Latitude: 45.5552, Longitude: -73.5849},
	"H1V": {Latitude: 45.5492, Longitude: -73.5549},
	"H1W": {Latitude: 45.5362, Longitude: -73.5449},
	"H1X": {Latitude: 45.5472, Longitude: -73.5849},
	"H1Y": {Latitude: 45.5382, Longitude: -73.5749},
	"H1Z": {Latitude: 45.5292, Longitude: -73.5649},
	"H2A": {Latitude: 45.5508, Longitude: -73.5738},
	"H2B": {Latitude: 45.5418, Longitude: -73.5638},
	"H2C": {Latitude: 45.5328, Longitude: -73.5538},
	"H2E": {Latitude: 45.5438, Longitude: -73.5838},
	"H2G": {Latitude: 45.5348, Longitude: -73.5938},
	"H2H": {Latitude: 45.5258, Longitude: -73.5838},
	"H2J": {Latitude: 45.5268, Longitude: -73.5638},
	"H2K": {Latitude: 45.5178, Longitude: -73.5538},
	"H2L": {Latitude: 45.5188, Longitude: -73.5638},
	"H2M": {Latitude: 45.5598, Longitude: -73.6288},
	"H2N": {Latitude: 45.5688, Longitude: -73.6388},
	"H2P": {Latitude: 45.5388, Longitude: -73.6088},
	"H2R": {Latitude: 45.5298, Longitude: -73.6188},
	"H2S": {Latitude: 45.5388, Longitude: -73.5988},
	"H2T": {Latitude: 45.5198, Longitude: -73.5888},
	"H2V": {Latitude: 45.5188, Longitude: -73.6084},
	"H2W": {Latitude: 45.5108, Longitude: -73.5988},
	"H2X": {Latitude: 45.5088, Longitude: -73.5696},
	"H2Y": {Latitude: 45.5038, Longitude: -73.5596},
	"H2Z": {Latitude: 45.5048, Longitude: -73.5646},
	"H3A": {Latitude: 45.5048, Longitude: -73.5746},
	"H3B": {Latitude: 45.5008, Longitude: -73.5696},
	"H3C": {Latitude: 45.4958, Longitude: -73.5546},
	"H3E": {Latitude: 45.4708, Longitude: -73.5196},
	"H3G": {Latitude: 45.4958, Longitude: -73.5796},
	"H3H": {Latitude: 45.4908, Longitude: -73.5896},
	"H3J": {Latitude: 45.4858, Longitude: -73.5746},
	"H3K": {Latitude: 45.4808, Longitude: -73.5546},
	"H3L": {Latitude: 45.5558, Longitude: -73.6488},
	"H3M": {Latitude: 45.5438, Longitude: -73.6588},
	"H3N": {Latitude: 45.5348, Longitude: -73.6288},
	"H3P": {Latitude: 45.4948, Longitude: -73.6396},
	"H3R": {Latitude: 45.5018, Longitude: -73.6296},
	"H3S": {Latitude: 45.5028, Longitude: -73.6196},
	"H3T": {Latitude: 45.4988, Longitude: -73.6346},
	"H3V": {Latitude: 45.4918, Longitude: -73.6196},
	"H3W": {Latitude: 45.4848, Longitude: -73.6296},
	"H3X": {Latitude: 45.4778, Longitude: -73.6196},
	"H3Y": {Latitude: 45.4818, Longitude: -73.5896},
	"H3Z": {Latitude: 45.4788, Longitude: -73.5996},
	"H4A": {Latitude: 45.4708, Longitude: -73.6096},
	"H4B": {Latitude: 45.4638, Longitude: -73.6096},
	"H4C": {Latitude: 45.4708, Longitude: -73.5846},
	"H4E": {Latitude: 45.4638, Longitude: -73.5746},
	"H4G": {Latitude: 45.4568, Longitude: -73.5896},
	"H4H": {Latitude: 45.4558, Longitude: -73.6046},
	"H4J": {Latitude: 45.5048, Longitude: -73.6546},
	"H4K": {Latitude: 45.5118, Longitude: -73.6646},
	"H4L": {Latitude: 45.5188, Longitude: -73.6546},
	"H4M": {Latitude: 45.5258, Longitude: -73.6546},
	"H4N": {Latitude: 45.5128, Longitude: -73.6846},
	"H4P": {Latitude: 45.4958, Longitude: -73.6546},
	"H4R": {Latitude: 45.4878, Longitude: -73.6746},
	"H4S": {Latitude: 45.4968, Longitude: -73.6846},
	"H4T": {Latitude: 45.4888, Longitude: -73.6646},
	"H4V": {Latitude: 45.4688, Longitude: -73.6246},
	"H4W": {Latitude: 45.4618, Longitude: -73.6346},
	"H4X": {Latitude: 45.4548, Longitude: -73.6446},
	"H4Y": {Latitude: 45.4478, Longitude: -73.6546},
	"H4Z": {Latitude: 45.4408, Longitude: -73.6646},
	"H5A": {Latitude: 45.5000, Longitude: -73.5550},
	"H5B": {Latitude: 45.4950, Longitude: -73.5600},
	"H7A": {Latitude: 45.5620, Longitude: -73.7390},
	"H7B": {Latitude: 45.5555, Longitude: -73.7490},
	"H7C": {Latitude: 45.5485, Longitude: -73.7590},
	"H7E": {Latitude: 45.5415, Longitude: -73.7690},
	"H7G": {Latitude: 45.5345, Longitude: -73.7790},
	"H7H": {Latitude: 45.5600, Longitude: -73.7290},
	"H7K": {Latitude: 45.5495, Longitude: -73.7210},
	"H7L": {Latitude: 45.5725, Longitude: -73.7200},
	"H7M": {Latitude: 45.5795, Longitude: -73.7300},
	"H7N": {Latitude: 45.5865, Longitude: -73.7400},
	"H7P": {Latitude: 45.5795, Longitude: -73.7500},
	"H7R": {Latitude: 45.5725, Longitude: -73.7600},
	"H7S": {Latitude: 45.5655, Longitude: -73.7700},
	"H7T": {Latitude: 45.5585, Longitude: -73.7100},
	"H7V": {Latitude: 45.5515, Longitude: -73.7000},
	"H7W": {Latitude: 45.5665, Longitude: -73.7050},
	"H7X": {Latitude: 45.5735, Longitude: -73.6950},
	"H7Y": {Latitude: 45.5805, Longitude: -73.6850},
	"H8N": {Latitude: 45.4378, Longitude: -73.7196},
	"H8P": {Latitude: 45.4308, Longitude: -73.7296},
	"H8R": {Latitude: 45.4448, Longitude: -73.7096},
	"H8S": {Latitude: 45.4378, Longitude: -73.6996},
	"H8T": {Latitude: 45.4518, Longitude: -73.6896},
	"H8Y": {Latitude: 45.4628, Longitude: -73.7046},
	"H8Z": {Latitude: 45.4558, Longitude: -73.7146},
	"H9A": {Latitude: 45.4488, Longitude: -73.7346},
	"H9B": {Latitude: 45.4418, Longitude: -73.7446},
	"H9C": {Latitude: 45.4348, Longitude: -73.7546},
	"H9E": {Latitude: 45.4278, Longitude: -73.7646},
	"H9G": {Latitude: 45.4208, Longitude: -73.7746},
	"H9H": {Latitude: 45.4468, Longitude: -73.7746},
	"H9J": {Latitude: 45.4538, Longitude: -73.7846},
	"H9K": {Latitude: 45.4608, Longitude: -73.7946},
	"H9P": {Latitude: 45.4678, Longitude: -73.8046},
	"H9R": {Latitude: 45.4618, Longitude: -73.7696},
	"H9S": {Latitude: 45.4548, Longitude: -73.7596},
	"H9W": {Latitude: 45.4688, Longitude: -73.7846},
	"H9X": {Latitude: 45.4758, Longitude: -73.7746},
}

var quebecFSACentroids = map[string]geo.Point{
	"G1A": {Latitude: 46.8139, Longitude: -71.2080},
	"G1B": {Latitude: 46.8625, Longitude: -71.1978},
	"G1C": {Latitude: 46.8758, Longitude: -71.1678},
	"G1E": {Latitude: 46.8572, Longitude: -71.2281},
	"G1G": {Latitude: 46.8247, Longitude: -71.2589},
	"G1H": {Latitude: 46.7989, Longitude: -71.2378},
	"G1J": {Latitude: 46.8208, Longitude: -71.2089},
	"G1K": {Latitude: 46.8125, Longitude: -71.2189},
	"G1L": {Latitude: 46.8064, Longitude: -71.2289},
	"G1M": {Latitude: 46.7939, Longitude: -71.2489},
	"G1N": {Latitude: 46.7814, Longitude: -71.2589},
	"G1P": {Latitude: 46.7689, Longitude: -71.2789},
	"G1R": {Latitude: 46.8094, Longitude: -71.2189},
	"G1S": {Latitude: 46.7564, Longitude: -71.2889},
	"G1T": {Latitude: 46.7439, Longitude: -71.2989},
	"G1V": {Latitude: 46.7814, Longitude: -71.2789},
	"G1W": {Latitude: 46.7689, Longitude: -71.2889},
	"G1X": {Latitude: 46.7564, Longitude: -71.3089},
	"G1Y": {Latitude: 46.7439, Longitude: -71.3189},
	"G2A": {Latitude: 46.8375, Longitude: -71.2580},
	"G2B": {Latitude: 46.8500, Longitude: -71.2680},
	"G2C": {Latitude: 46.8625, Longitude: -71.2780},
	"G2E": {Latitude: 46.8750, Longitude: -71.2880},
	"G2G": {Latitude: 46.8875, Longitude: -71.2980},
	"G2J": {Latitude: 46.9000, Longitude: -71.3080},
	"G2K": {Latitude: 46.9125, Longitude: -71.3180},
	"G2L": {Latitude: 46.9250, Longitude: -71.3280},
	"G2M": {Latitude: 46.9375, Longitude: -71.3380},
	"G2N": {Latitude: 46.9500, Longitude: -71.3480},
	"G3A": {Latitude: 46.8439, Longitude: -71.1678},
	"G3B": {Latitude: 46.8572, Longitude: -71.1578},
	"G3C": {Latitude: 46.8705, Longitude: -71.1478},
	"G3E": {Latitude: 46.8838, Longitude: -71.1378},
	"G3G": {Latitude: 46.8971, Longitude: -71.1278},
	"G3H": {Latitude: 46.9104, Longitude: -71.1178},
	"G3J": {Latitude: 46.9237, Longitude: -71.1078},
	"G3K": {Latitude: 46.9370, Longitude: -71.0978},
	"G3L": {Latitude: 46.9503, Longitude: -71.0878},
	"G3M": {Latitude: 46.9636, Longitude: -71.0778},
	"G3N": {Latitude: 46.9769, Longitude: -71.0678},
}

// fsaCentroid looks up the centroid for a normalized postal code's FSA.
func fsaCentroid(c city.City, normalizedPostal string) (geo.Point, bool) {
	if len(normalizedPostal) < 3 {
		return geo.Point{}, false
	}
	fsa := normalizedPostal[:3]
	switch c {
	case city.Montreal:
		p, ok := montrealFSACentroids[fsa]
		return p, ok
	case city.Quebec:
		p, ok := quebecFSACentroids[fsa]
		return p, ok
	default:
		return geo.Point{}, false
	}
}

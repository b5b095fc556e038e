package docstore

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/domain"
)

// Write-side wire shapes. Nested Duration/Inclusion/Exclusion arrays are
// serialized back into per-element text blobs the way the store expects.

func encodePackage(p domain.Package) domain.Document {
	doc := domain.Document{
		"type":           p.Type,
		"makkahHotelId":  p.MakkahHotelID,
		"madinahHotelId": p.MadinahHotelID,
		"image":          p.Image,
		"durations":      encodeBlobs(p.Durations),
		"inclusions":     encodeBlobs(p.Inclusions),
		"exclusions":     encodeBlobs(p.Exclusions),
	}
	if p.TravelDate != nil {
		doc["travelDate"] = p.TravelDate.Format("2006-01-02")
	}
	return doc
}

func encodeHotel(h domain.Hotel) domain.Document {
	return domain.Document{
		"city":        h.City,
		"name":        h.Name,
		"category":    h.Category,
		"distance":    h.Distance,
		"walkingTime": h.WalkingTime,
		"hasShuttle":  h.HasShuttle,
		"transport":   h.Transport,
		"images":      h.Images,
	}
}

func encodeBlobs[T any](els []T) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		b, err := json.Marshal(el)
		if err != nil {
			log.Error().Err(err).Msg("blob element encode failed")
			continue
		}
		out = append(out, string(b))
	}
	return out
}

package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/domain"
)

// The document store transmits nested Duration/Inclusion/Exclusion
// fields as independently serialized text blobs, one per array element.
// Everything here decodes those documents into typed values; undecoded
// blobs never enter the cache.

/********** alias registries **********/

var packageAliases = map[string][]string{
	"type":          {"type", "category", "packageType"},
	"makkah_hotel":  {"makkahHotelId", "makkah_hotel_id", "makkahHotel"},
	"madinah_hotel": {"madinahHotelId", "madinah_hotel_id", "madinahHotel"},
	"travel_date":   {"travelDate", "travel_date", "date"},
	"image":         {"image", "imageId", "cover"},
}

var hotelAliases = map[string][]string{
	"city":         {"city", "ciry"}, // "ciry" is a live typo in stored documents
	"name":         {"name", "hotelName"},
	"category":     {"category", "class"},
	"distance":     {"distance", "distanceFromHaram"},
	"walking_time": {"walkingTime", "walking_time"},
	"transport":    {"transport", "transportDetails"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func lookupBool(m map[string]any, paths ...string) bool {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

// floatFlexible: number from a decoded value (float64/int/string).
func floatFlexible(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func strSlice(m map[string]any, paths ...string) []string {
	for _, p := range paths {
		raw, ok := lookupAny(m, p).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			if s, ok := it.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// docID: the document store's identity field, with legacy variants.
func docID(m map[string]any) string {
	for _, k := range []string{"$id", "id", "_id"} {
		if s := lookupStr(m, k); s != "" {
			return s
		}
	}
	return ""
}

// blobElements returns the raw elements of a blob array field: each
// element is either a serialized text blob or (older documents) an
// already-structured map.
func blobElements(m map[string]any, field string) []map[string]any {
	raw, ok := lookupAny(m, field).([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		switch t := el.(type) {
		case string:
			var dec map[string]any
			if err := json.Unmarshal([]byte(t), &dec); err != nil {
				log.Warn().Err(err).Str("field", field).Msg("blob element decode failed, dropping")
				continue
			}
			out = append(out, dec)
		case map[string]any:
			out = append(out, t)
		}
	}
	return out
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

/********** package decoding **********/

// DecodePackage maps one raw document into a typed Package.
func DecodePackage(doc domain.Document) domain.Package {
	p := domain.Package{
		ID:             docID(doc),
		Type:           firstAlias(doc, packageAliases, "type"),
		MakkahHotelID:  firstAlias(doc, packageAliases, "makkah_hotel"),
		MadinahHotelID: firstAlias(doc, packageAliases, "madinah_hotel"),
		TravelDate:     parseDate(firstAlias(doc, packageAliases, "travel_date")),
		Image:          firstAlias(doc, packageAliases, "image"),
	}

	for _, el := range blobElements(doc, "durations") {
		d := domain.Duration{SharedRoomPrices: map[domain.RoomType]float64{}}
		if f, ok := floatFlexible(lookupAny(el, "days")); ok {
			d.Days = int(f)
		}
		if f, ok := floatFlexible(lookupAny(el, "basePrice")); ok {
			d.BasePrice = f
		}
		if prices, ok := lookupAny(el, "sharedRoomPrices").(map[string]any); ok {
			for k, v := range prices {
				if f, ok := floatFlexible(v); ok {
					d.SharedRoomPrices[domain.RoomType(k)] = f
				}
			}
		}
		p.Durations = append(p.Durations, d)
	}
	for _, el := range blobElements(doc, "inclusions") {
		p.Inclusions = append(p.Inclusions, domain.Inclusion{
			ID:          docID(el),
			Description: lookupStr(el, "description"),
		})
	}
	for _, el := range blobElements(doc, "exclusions") {
		p.Exclusions = append(p.Exclusions, domain.Exclusion{
			ID:          docID(el),
			Description: lookupStr(el, "description"),
		})
	}
	return p
}

func DecodePackages(docs []domain.Document) []domain.Package {
	out := make([]domain.Package, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DecodePackage(doc))
	}
	return out
}

/********** hotel decoding **********/

func DecodeHotel(doc domain.Document) domain.Hotel {
	return domain.Hotel{
		ID:          docID(doc),
		City:        firstAlias(doc, hotelAliases, "city"),
		Name:        firstAlias(doc, hotelAliases, "name"),
		Category:    firstAlias(doc, hotelAliases, "category"),
		Distance:    firstAlias(doc, hotelAliases, "distance"),
		WalkingTime: firstAlias(doc, hotelAliases, "walking_time"),
		HasShuttle:  lookupBool(doc, "hasShuttle", "has_shuttle"),
		Transport:   firstAlias(doc, hotelAliases, "transport"),
		Images:      strSlice(doc, "images", "imageIds"),
	}
}

func DecodeHotels(docs []domain.Document) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DecodeHotel(doc))
	}
	return out
}

/********** inclusion and image decoding **********/

func DecodeInclusions(docs []domain.Document) []domain.Inclusion {
	out := make([]domain.Inclusion, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.Inclusion{
			ID:          docID(doc),
			Description: lookupStr(doc, "description"),
		})
	}
	return out
}

func DecodeFoodImages(docs []domain.Document) []domain.FoodImage {
	out := make([]domain.FoodImage, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.FoodImage{
			ID:  docID(doc),
			Alt: firstStr(doc, "alt", "name"),
		})
	}
	return out
}

func DecodeGalleryImages(docs []domain.Document) []domain.GalleryImage {
	out := make([]domain.GalleryImage, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.GalleryImage{
			ID:  docID(doc),
			Alt: firstStr(doc, "alt", "name"),
		})
	}
	return out
}

func firstStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"umrah_catalog/internal/catalog"
	"umrah_catalog/internal/domain"
)

func TestDecodePackage_BlobFields(t *testing.T) {
	doc := domain.Document{
		"$id":            "pkg-1",
		"type":           "premium",
		"makkahHotelId":  "mk-1",
		"madinahHotelId": "md-1",
		"travelDate":     "2026-03-15",
		"image":          "img-1",
		"durations": []any{
			`{"days":7,"basePrice":"1200,50","sharedRoomPrices":{"quad":900,"double":"1500"}}`,
			// older documents carry structured elements instead of blobs
			map[string]any{"days": 10.0, "basePrice": 1600.0},
		},
		"inclusions": []any{`{"id":"i1","description":"Visa"}`},
		"exclusions": []any{`{"description":"Flights"}`},
	}

	p := catalog.DecodePackage(doc)
	require.Equal(t, "pkg-1", p.ID)
	require.Equal(t, "premium", p.Type)
	require.Equal(t, "mk-1", p.MakkahHotelID)
	require.Equal(t, "md-1", p.MadinahHotelID)
	require.NotNil(t, p.TravelDate)
	require.Equal(t, "2026-03-15", p.TravelDate.Format("2006-01-02"))

	require.Len(t, p.Durations, 2)
	require.Equal(t, 7, p.Durations[0].Days)
	require.InDelta(t, 1200.50, p.Durations[0].BasePrice, 0.001)
	require.InDelta(t, 900, p.Durations[0].SharedRoomPrices[domain.RoomQuad], 0.001)
	require.InDelta(t, 1500, p.Durations[0].SharedRoomPrices[domain.RoomDouble], 0.001)
	require.Equal(t, 10, p.Durations[1].Days)

	require.Len(t, p.Inclusions, 1)
	require.Equal(t, "Visa", p.Inclusions[0].Description)
	require.Len(t, p.Exclusions, 1)
}

func TestDecodePackage_MalformedBlobDropped(t *testing.T) {
	doc := domain.Document{
		"$id": "pkg-1",
		"durations": []any{
			`{"days":7,"basePrice":100}`,
			`{not json`,
		},
	}
	p := catalog.DecodePackage(doc)
	require.Len(t, p.Durations, 1, "undecodable blob must be dropped, not kept raw")
}

func TestDecodeHotel_AliasesAndTypo(t *testing.T) {
	doc := domain.Document{
		"$id":         "h1",
		"ciry":        domain.CityMakkah, // stored documents carry this typo
		"hotelName":   "Al Safwah",
		"category":    "5",
		"distance":    "100m",
		"walkingTime": "2 min",
		"hasShuttle":  "true",
		"images":      []any{"f1", "f2"},
	}
	h := catalog.DecodeHotel(doc)
	require.Equal(t, domain.CityMakkah, h.City)
	require.Equal(t, "Al Safwah", h.Name)
	require.True(t, h.HasShuttle)
	require.Equal(t, []string{"f1", "f2"}, h.Images)
}

func TestDecodeFoodImages(t *testing.T) {
	imgs := catalog.DecodeFoodImages([]domain.Document{
		{"$id": "f1", "name": "Buffet"},
		{"id": "f2"},
	})
	require.Len(t, imgs, 2)
	require.Equal(t, "f1", imgs[0].ID)
	require.Equal(t, "Buffet", imgs[0].Alt)
	require.Equal(t, "f2", imgs[1].ID)
}

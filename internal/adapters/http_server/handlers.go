package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/catalog"
	"umrah_catalog/internal/domain"
)

type Handlers struct {
	Store   *catalog.Store
	Loader  *catalog.Loader
	Notices *catalog.Notifications
	Files   domain.FileGateway
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/packages", h.listPackages)
		r.Get("/packages/compare", h.comparePackages)
		r.Get("/packages/{id}", h.getPackage)
		r.Get("/durations", h.listDurations)
		r.Get("/hotels", h.listHotels)
		r.Get("/hotels/{id}", h.getHotel)
		r.Get("/inclusions", h.listInclusions)
		r.Get("/food-images", h.listFoodImages)
		r.Get("/images", h.listGalleryImages)
		r.Get("/media", h.getMedia)
		r.Post("/media/more", h.loadMoreMedia)
		r.Post("/media/reset", h.resetMedia)
		r.Get("/notifications", h.listNotifications)
		r.Delete("/notifications/{id}", h.dismissNotification)

		// admin write surface; authentication happens upstream
		r.Post("/packages", h.createPackage)
		r.Patch("/packages/{id}", h.updatePackage)
		r.Delete("/packages/{id}", h.deletePackage)
		r.Post("/hotels", h.createHotel)
		r.Patch("/hotels/{id}", h.updateHotel)
		r.Delete("/hotels/{id}", h.deleteHotel)
		r.Post("/inclusions", h.createInclusion)
		r.Delete("/inclusions/{id}", h.deleteInclusion)
		r.Post("/files", h.uploadFiles)
		r.Delete("/files/{id}", h.deleteFile)
	})
}

/* ---- response plumbing ---- */

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeValidation reports field-level pre-submission failures; these
// never reach the gateway.
func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fields})
}

// calcETagAndBody marshals once and hashes once.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func queryInt(r *http.Request, key string) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

/* ---- packages ---- */

func (h *Handlers) listPackages(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsurePackages(r.Context()); err != nil && len(h.Store.Packages()) == 0 {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load packages")
		return
	}
	writeCached(w, r, map[string]any{"packages": h.Store.Packages()})
}

type packageDetail struct {
	Package            domain.Package `json:"package"`
	MakkahHotel        *domain.Hotel  `json:"makkahHotel,omitempty"`
	MadinahHotel       *domain.Hotel  `json:"madinahHotel,omitempty"`
	Pricing            domain.Pricing `json:"pricing"`
	AvailableDurations []int          `json:"availableDurations"`
}

func (h *Handlers) getPackage(w http.ResponseWriter, r *http.Request) {
	_ = h.Loader.EnsurePackages(r.Context())
	_ = h.Loader.EnsureHotels(r.Context())

	pkg, ok := catalog.FindPackage(h.Store.Packages(), chi.URLParam(r, "id"))
	if !ok {
		// structural failure: the view cannot render, the client should
		// navigate back to the list
		writeProblem(w, http.StatusNotFound, "Not Found", "package not found, invalid package id")
		return
	}

	days := queryInt(r, "days")
	if days == 0 {
		// default to the shortest duration, as the detail view does
		if ds := catalog.AvailableDurations([]domain.Package{pkg}); len(ds) > 0 {
			days = ds[0]
		}
	}

	detail := packageDetail{
		Package:            pkg,
		Pricing:            catalog.SelectPricing(pkg, days),
		AvailableDurations: catalog.AvailableDurations([]domain.Package{pkg}),
	}
	hotels := h.Store.Hotels()
	if mk, ok := catalog.FindHotel(hotels, pkg.MakkahHotelID); ok {
		detail.MakkahHotel = &mk
	}
	if md, ok := catalog.FindHotel(hotels, pkg.MadinahHotelID); ok {
		detail.MadinahHotel = &md
	}
	if detail.MakkahHotel == nil || detail.MadinahHotel == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel information is incomplete")
		return
	}
	writeCached(w, r, detail)
}

func (h *Handlers) comparePackages(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsurePackages(r.Context()); err != nil && len(h.Store.Packages()) == 0 {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load packages")
		return
	}
	f := catalog.Filter{
		Days:     queryInt(r, "days"),
		RoomType: domain.RoomType(r.URL.Query().Get("room")),
	}
	writeCached(w, r, map[string]any{
		"packages":           catalog.FilterAndSort(h.Store.Packages(), f),
		"availableDurations": catalog.AvailableDurations(h.Store.Packages()),
	})
}

func (h *Handlers) listDurations(w http.ResponseWriter, r *http.Request) {
	_ = h.Loader.EnsurePackages(r.Context())
	writeCached(w, r, map[string]any{"durations": catalog.AvailableDurations(h.Store.Packages())})
}

/* ---- hotels & inclusions ---- */

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsureHotels(r.Context()); err != nil && len(h.Store.Hotels()) == 0 {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load hotels")
		return
	}
	hotels := h.Store.Hotels()
	if city := r.URL.Query().Get("city"); city != "" {
		hotels = catalog.HotelsByCity(hotels, city)
	}
	writeCached(w, r, map[string]any{"hotels": hotels})
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	_ = h.Loader.EnsureHotels(r.Context())
	hotel, ok := catalog.FindHotel(h.Store.Hotels(), chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}
	previews := make([]string, 0, len(hotel.Images))
	for _, id := range hotel.Images {
		previews = append(previews, h.Files.PreviewURL(id))
	}
	writeCached(w, r, map[string]any{"hotel": hotel, "imageUrls": previews})
}

func (h *Handlers) listInclusions(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsureCommonInclusions(r.Context()); err != nil && len(h.Store.CommonInclusions()) == 0 {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load inclusions")
		return
	}
	writeCached(w, r, map[string]any{"inclusions": h.Store.CommonInclusions()})
}

/* ---- food gallery ---- */

type foodImageView struct {
	ID         string `json:"id"`
	Alt        string `json:"alt,omitempty"`
	PreviewURL string `json:"previewUrl"`
}

func (h *Handlers) listFoodImages(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsureFoodImages(r.Context()); err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load food images")
		return
	}
	imgs := h.Store.FoodImages()
	views := make([]foodImageView, 0, len(imgs))
	for _, img := range imgs {
		views = append(views, foodImageView{ID: img.ID, Alt: img.Alt, PreviewURL: h.Files.PreviewURL(img.ID)})
	}
	writeCached(w, r, map[string]any{"foodImages": views})
}

type galleryImageView struct {
	ID         string `json:"id"`
	Alt        string `json:"alt,omitempty"`
	PreviewURL string `json:"previewUrl"`
	ViewURL    string `json:"viewUrl"`
}

func (h *Handlers) listGalleryImages(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.EnsureAllImages(r.Context()); err != nil && len(h.Store.AllImages()) == 0 {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to load gallery images")
		return
	}
	imgs := h.Store.AllImages()
	views := make([]galleryImageView, 0, len(imgs))
	for _, img := range imgs {
		views = append(views, galleryImageView{
			ID:         img.ID,
			Alt:        img.Alt,
			PreviewURL: h.Files.PreviewURL(img.ID),
			ViewURL:    h.Files.ViewURL(img.ID),
		})
	}
	writeCached(w, r, map[string]any{"images": views})
}

/* ---- media feed ---- */

type mediaView struct {
	Items      []domain.MediaItem `json:"items"`
	NextCursor *string            `json:"nextCursor"`
	HasMore    bool               `json:"hasMore"`
	Videos     int                `json:"videos"`
	Albums     int                `json:"albums"`
}

func (h *Handlers) mediaState() (domain.MediaState, mediaView) {
	st := h.Store.Media()
	return st, mediaView{
		Items:      st.Items,
		NextCursor: st.NextCursor,
		HasMore:    st.NextCursor != nil,
		Videos:     len(catalog.PartitionMedia(st.Items, domain.MediaVideo)),
		Albums:     len(catalog.PartitionMedia(st.Items, domain.MediaCarouselAlbum)),
	}
}

func (h *Handlers) getMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.LoadFirstMediaPage(r.Context()); err != nil {
		log.Warn().Err(err).Msg("first media page fetch failed")
	}
	st, view := h.mediaState()
	if st.Error != "" {
		// dedicated fallback: the client renders the error view with a
		// retry action against /media/reset
		writeProblem(w, http.StatusBadGateway, "Media Feed Unavailable", st.Error)
		return
	}
	if t := r.URL.Query().Get("type"); t != "" {
		view.Items = catalog.PartitionMedia(st.Items, domain.MediaType(t))
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) loadMoreMedia(w http.ResponseWriter, r *http.Request) {
	err := h.Loader.LoadMoreMedia(r.Context())
	if errors.Is(err, domain.ErrFeedExhausted) {
		_, view := h.mediaState()
		writeJSON(w, http.StatusOK, view)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Media Feed Unavailable", "failed to load more media")
		return
	}
	_, view := h.mediaState()
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) resetMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.ResetMedia(r.Context()); err != nil {
		writeProblem(w, http.StatusBadGateway, "Media Feed Unavailable", "retry failed")
		return
	}
	_, view := h.mediaState()
	writeJSON(w, http.StatusOK, view)
}

/* ---- notifications ---- */

func (h *Handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": h.Notices.List()})
}

func (h *Handlers) dismissNotification(w http.ResponseWriter, r *http.Request) {
	h.Notices.Dismiss(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

/* ---- admin: packages ---- */

func validatePackage(p domain.Package) map[string]string {
	errs := map[string]string{}
	if p.MakkahHotelID == "" {
		errs["makkahHotelId"] = "Makkah hotel is required"
	}
	if p.MadinahHotelID == "" {
		errs["madinahHotelId"] = "Madinah hotel is required"
	}
	if p.Image == "" {
		errs["image"] = "Package image is required"
	}
	for i, d := range p.Durations {
		if d.Days <= 0 {
			errs["duration"+strconv.Itoa(i)+"Days"] = "Days are required"
		}
		if d.BasePrice <= 0 {
			errs["duration"+strconv.Itoa(i)+"BasePrice"] = "Base price is required"
		}
	}
	return errs
}

func (h *Handlers) createPackage(w http.ResponseWriter, r *http.Request) {
	var p domain.Package
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if errs := validatePackage(p); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	id, err := h.Loader.CreatePackage(r.Context(), p)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to add package")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) updatePackage(w http.ResponseWriter, r *http.Request) {
	var p domain.Package
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if errs := validatePackage(p); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	if err := h.Loader.UpdatePackage(r.Context(), chi.URLParam(r, "id"), p); err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to update package")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deletePackage(w http.ResponseWriter, r *http.Request) {
	err := h.Loader.DeletePackage(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "package not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to delete package")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---- admin: hotels ---- */

func validateHotel(hotel domain.Hotel) map[string]string {
	errs := map[string]string{}
	if hotel.Name == "" {
		errs["name"] = "Hotel name is required"
	}
	if hotel.Distance == "" {
		errs["distance"] = "Distance is required"
	}
	if hotel.WalkingTime == "" {
		errs["walkingTime"] = "Walking time is required"
	}
	if len(hotel.Images) == 0 {
		errs["images"] = "At least one image is required"
	}
	return errs
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var hotel domain.Hotel
	if err := json.NewDecoder(r.Body).Decode(&hotel); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if errs := validateHotel(hotel); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	id, err := h.Loader.CreateHotel(r.Context(), hotel)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to add hotel")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) updateHotel(w http.ResponseWriter, r *http.Request) {
	var hotel domain.Hotel
	if err := json.NewDecoder(r.Body).Decode(&hotel); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if errs := validateHotel(hotel); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	if err := h.Loader.UpdateHotel(r.Context(), chi.URLParam(r, "id"), hotel); err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to update hotel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteHotel(w http.ResponseWriter, r *http.Request) {
	err := h.Loader.DeleteHotel(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to delete hotel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---- admin: inclusions ---- */

func (h *Handlers) createInclusion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Description == "" {
		writeValidation(w, map[string]string{"description": "Description is required"})
		return
	}
	id, err := h.Loader.CreateCommonInclusion(r.Context(), body.Description)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to add inclusion")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) deleteInclusion(w http.ResponseWriter, r *http.Request) {
	if err := h.Loader.DeleteCommonInclusion(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to delete inclusion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---- admin: files ---- */

const maxUploadBytes = 32 << 20

// uploadFiles accepts multipart form uploads under the "files" field.
// Per-file failures are isolated: the response carries the ids that
// succeeded.
func (h *Handlers) uploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeValidation(w, map[string]string{"files": "At least one file is required"})
		return
	}

	uploads := make([]catalog.Upload, 0, len(parts))
	for _, fh := range parts {
		f, err := fh.Open()
		if err != nil {
			log.Warn().Str("file", fh.Filename).Err(err).Msg("open multipart file failed")
			continue
		}
		defer f.Close()
		uploads = append(uploads, catalog.Upload{Name: fh.Filename, Content: f})
	}

	ids := h.Loader.UploadImages(r.Context(), uploads)
	writeJSON(w, http.StatusOK, map[string]any{
		"ids":    ids,
		"failed": len(parts) - len(ids),
	})
}

func (h *Handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Loader.DeleteFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": ok})
}

// Package rpc provides the Connect service surface for the Fitment Engine.
package rpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// Procedure paths for the resolution service, in Connect convention.
const (
	ResolutionServiceBasePath = "/driveline.fitment.v1.ResolutionService/"
	ResolveTagProcedure       = ResolutionServiceBasePath + "ResolveTag"
	SuggestFitmentsProcedure  = ResolutionServiceBasePath + "SuggestFitments"
	UpsertPartProcedure       = ResolutionServiceBasePath + "UpsertPart"
)

// ResolutionService implements the Connect resolution service.
type ResolutionService struct {
	logger *observability.Logger
	engine *catalog.Engine
}

// NewResolutionService creates a new resolution service.
func NewResolutionService(logger *observability.Logger, engine *catalog.Engine) *ResolutionService {
	return &ResolutionService{
		logger: logger,
		engine: engine,
	}
}

// ResolveTagRequest asks which vehicle a single platform tag identifies.
type ResolveTagRequest struct {
	Tag      string   `json:"tag"`
	Families []string `json:"families,omitempty"`
}

// ResolveTagResponse carries the resolution outcome. An unmatched tag yields
// resolved=false, not an error.
type ResolveTagResponse struct {
	Resolved       bool    `json:"resolved"`
	VehicleSlug    string  `json:"vehicle_slug,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	MatchedPattern string  `json:"matched_pattern,omitempty"`
	Family         string  `json:"family,omitempty"`
}

// SuggestFitmentsRequest asks which vehicles a product's tags point at.
type SuggestFitmentsRequest struct {
	Tags      []string `json:"tags"`
	VendorKey string   `json:"vendor_key,omitempty"`
}

// SuggestFitmentsResponse lists the resolved vehicles with vendor-weighted
// confidence.
type SuggestFitmentsResponse struct {
	Suggestions []*FitmentSuggestion `json:"suggestions"`
}

// FitmentSuggestion is one resolved vehicle in a suggestion response.
type FitmentSuggestion struct {
	VehicleSlug    string   `json:"vehicle_slug"`
	Confidence     float64  `json:"confidence"`
	MatchedPattern string   `json:"matched_pattern"`
	Family         string   `json:"family"`
	Tags           []string `json:"tags,omitempty"`
}

// UpsertPartRequest describes one part candidate for identity resolution.
type UpsertPartRequest struct {
	Manufacturer    string  `json:"manufacturer"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	PartNumber      string  `json:"part_number,omitempty"`
	ProductURL      string  `json:"product_url,omitempty"`
	ManufacturerURL string  `json:"manufacturer_url,omitempty"`
	Description     string  `json:"description,omitempty"`
	QualityTier     string  `json:"quality_tier,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	DataSource      string  `json:"data_source,omitempty"`
	Actor           string  `json:"actor,omitempty"`
}

// UpsertPartResponse reports the resolved identity.
type UpsertPartResponse struct {
	PartID       string `json:"part_id"`
	IsNew        bool   `json:"is_new"`
	MatchTier    string `json:"match_tier"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
}

// ResolveTag handles single-tag resolution.
func (s *ResolutionService) ResolveTag(ctx context.Context, req *connect.Request[ResolveTagRequest]) (*connect.Response[ResolveTagResponse], error) {
	msg := req.Msg
	if msg.Tag == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("tag is required"))
	}

	match := s.engine.ResolveCarSlugFromTag(msg.Tag, msg.Families)
	if match == nil {
		return connect.NewResponse(&ResolveTagResponse{Resolved: false}), nil
	}
	return connect.NewResponse(&ResolveTagResponse{
		Resolved:       true,
		VehicleSlug:    match.VehicleSlug,
		Confidence:     match.Confidence,
		MatchedPattern: match.MatchedPattern,
		Family:         match.Family,
	}), nil
}

// SuggestFitments handles tag-set fitment suggestions.
func (s *ResolutionService) SuggestFitments(ctx context.Context, req *connect.Request[SuggestFitmentsRequest]) (*connect.Response[SuggestFitmentsResponse], error) {
	msg := req.Msg
	if len(msg.Tags) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("tags are required"))
	}

	suggestions := s.engine.SuggestFitments(msg.Tags, msg.VendorKey)
	resp := &SuggestFitmentsResponse{Suggestions: make([]*FitmentSuggestion, 0, len(suggestions))}
	for _, suggestion := range suggestions {
		resp.Suggestions = append(resp.Suggestions, &FitmentSuggestion{
			VehicleSlug:    suggestion.VehicleSlug,
			Confidence:     suggestion.Confidence,
			MatchedPattern: suggestion.MatchedPattern,
			Family:         suggestion.Family,
			Tags:           suggestion.Tags,
		})
	}
	return connect.NewResponse(resp), nil
}

// UpsertPart handles part identity resolution.
func (s *ResolutionService) UpsertPart(ctx context.Context, req *connect.Request[UpsertPartRequest]) (*connect.Response[UpsertPartResponse], error) {
	msg := req.Msg
	actor := msg.Actor
	if actor == "" {
		actor = "rpc"
	}

	result, err := s.engine.UpsertPart(ctx, catalog.UpsertPartInput{
		Manufacturer:    msg.Manufacturer,
		Name:            msg.Name,
		Category:        storage.PartCategory(msg.Category),
		PartNumber:      msg.PartNumber,
		ProductURL:      msg.ProductURL,
		ManufacturerURL: msg.ManufacturerURL,
		Description:     msg.Description,
		QualityTier:     storage.QualityTier(msg.QualityTier),
		Confidence:      msg.Confidence,
		DataSource:      msg.DataSource,
		Actor:           actor,
	})
	if err != nil {
		return nil, serviceError(err)
	}

	return connect.NewResponse(&UpsertPartResponse{
		PartID:       result.Part.ID.String(),
		IsNew:        result.IsNew,
		MatchTier:    string(result.MatchTier),
		Name:         result.Part.Name,
		Manufacturer: result.Part.Manufacturer,
	}), nil
}

// serviceError maps engine errors onto Connect codes. A rejected manufacturer
// is a well-formed request the engine refuses, hence failed-precondition
// rather than invalid-argument.
func serviceError(err error) *connect.Error {
	switch {
	case errors.Is(err, catalog.ErrRejectedManufacturer):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, catalog.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// NewResolutionServiceHandler builds the HTTP handler for the service,
// following the Connect generated-code convention of returning the base path
// to mount alongside the handler.
func NewResolutionServiceHandler(svc *ResolutionService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ResolveTagProcedure, connect.NewUnaryHandler(ResolveTagProcedure, svc.ResolveTag, opts...))
	mux.Handle(SuggestFitmentsProcedure, connect.NewUnaryHandler(SuggestFitmentsProcedure, svc.SuggestFitments, opts...))
	mux.Handle(UpsertPartProcedure, connect.NewUnaryHandler(UpsertPartProcedure, svc.UpsertPart, opts...))
	return ResolutionServiceBasePath, mux
}

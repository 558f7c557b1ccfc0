package handler

import (
	"context"

	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/ogurasousui/org-directory/internal/core/location"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateLocation は勤務地を作成します。
func (h *DirectoryHandler) CreateLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	patch := decodeLocationPatch(d)
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.svc.CreateLocation(ctx, directory.CreateLocationInput{LocationPatch: patch})
	if err != nil {
		return nil, err
	}
	return respond(ctx, created.UpdatedAt, encodeLocation(created))
}

// GetLocation は勤務地を取得します。
func (h *DirectoryHandler) GetLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	found, err := h.svc.GetLocation(ctx, directory.GetLocationInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return respond(ctx, found.UpdatedAt, encodeLocation(found))
}

// ListLocations は勤務地の一覧を取得します。
func (h *DirectoryHandler) ListLocations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.ListLocationsInput{ClientID: d.id("clientId"), PageSize: d.integer("pageSize"), PageToken: d.id("pageToken")}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.svc.ListLocations(ctx, input)
	if err != nil {
		return nil, err
	}
	return list(result.Locations, result.NextPageToken, encodeLocation).toStruct()
}

// UpdateLocation は勤務地を更新します。
func (h *DirectoryHandler) UpdateLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.UpdateLocationInput{ID: d.id("id"), ExpectedVersion: d.version(), LocationPatch: decodeLocationPatch(d)}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.svc.UpdateLocation(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(ctx, updated.UpdatedAt, encodeLocation(updated))
}

// DeleteLocation は勤務地を削除します。
func (h *DirectoryHandler) DeleteLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteLocation(ctx, directory.DeleteLocationInput{ID: newDecoder(in).id("id")}); err != nil {
		return nil, err
	}
	return empty()
}

func decodeLocationPatch(d *decoder) lifecycle.LocationPatch {
	var p lifecycle.LocationPatch
	p.City, _ = d.str("city")
	p.CountryCode, _ = d.str("countryCode")
	p.ZipCode, _ = d.str("zipCode")
	p.Street, _ = d.str("street")
	p.ClientID, _ = d.str("clientId")
	p.ValidFrom, _ = d.date("validFrom")
	p.ValidTo, p.ValidToSet = d.date("validTo")
	return p
}

func encodeLocation(l *location.Location) object {
	return object{
		"id":          l.ID,
		"city":        l.City,
		"countryCode": l.CountryCode,
		"zipCode":     l.ZipCode,
		"street":      l.Street,
		"clientId":    l.ClientID,
		"validFrom":   formatDate(l.ValidFrom),
		"validTo":     optionalDate(l.ValidTo),
		"createdAt":   timestamp(l.CreatedAt),
		"updatedAt":   timestamp(l.UpdatedAt),
	}
}

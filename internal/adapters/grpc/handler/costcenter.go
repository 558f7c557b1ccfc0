package handler

import (
	"context"

	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateCostCenter は原価センタを作成します。
func (h *DirectoryHandler) CreateCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	patch := decodeCostCenterPatch(d)
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.svc.CreateCostCenter(ctx, directory.CreateCostCenterInput{CostCenterPatch: patch})
	if err != nil {
		return nil, err
	}
	return respond(ctx, created.UpdatedAt, encodeCostCenter(created))
}

// GetCostCenter は原価センタを取得します。
func (h *DirectoryHandler) GetCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	found, err := h.svc.GetCostCenter(ctx, directory.GetCostCenterInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return respond(ctx, found.UpdatedAt, encodeCostCenter(found))
}

// ListCostCenters は原価センタの一覧を取得します。
func (h *DirectoryHandler) ListCostCenters(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.ListCostCentersInput{ClientID: d.id("clientId"), PageSize: d.integer("pageSize"), PageToken: d.id("pageToken")}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.svc.ListCostCenters(ctx, input)
	if err != nil {
		return nil, err
	}
	return list(result.CostCenters, result.NextPageToken, encodeCostCenter).toStruct()
}

// UpdateCostCenter は原価センタを更新します。
func (h *DirectoryHandler) UpdateCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.UpdateCostCenterInput{ID: d.id("id"), ExpectedVersion: d.version(), CostCenterPatch: decodeCostCenterPatch(d)}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.svc.UpdateCostCenter(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(ctx, updated.UpdatedAt, encodeCostCenter(updated))
}

// DeleteCostCenter は原価センタを削除します。
func (h *DirectoryHandler) DeleteCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteCostCenter(ctx, directory.DeleteCostCenterInput{ID: newDecoder(in).id("id")}); err != nil {
		return nil, err
	}
	return empty()
}

func decodeCostCenterPatch(d *decoder) lifecycle.CostCenterPatch {
	var p lifecycle.CostCenterPatch
	p.Code, _ = d.str("code")
	p.Name, _ = d.str("name")
	p.ClientID, _ = d.str("clientId")
	p.ResponsibleID, _ = d.str("responsibleId")
	p.ValidFrom, _ = d.date("validFrom")
	p.ValidTo, p.ValidToSet = d.date("validTo")
	return p
}

func encodeCostCenter(c *costcenter.CostCenter) object {
	return object{
		"id":            c.ID,
		"code":          c.Code,
		"name":          c.Name,
		"clientId":      c.ClientID,
		"responsibleId": c.ResponsibleID,
		"validFrom":     formatDate(c.ValidFrom),
		"validTo":       optionalDate(c.ValidTo),
		"createdAt":     timestamp(c.CreatedAt),
		"updatedAt":     timestamp(c.UpdatedAt),
	}
}

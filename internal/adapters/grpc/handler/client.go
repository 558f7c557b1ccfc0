package handler

import (
	"context"

	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateClient は取引先を作成します。
func (h *DirectoryHandler) CreateClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	patch := decodeClientPatch(d)
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.svc.CreateClient(ctx, directory.CreateClientInput{ClientPatch: patch})
	if err != nil {
		return nil, err
	}
	return respond(ctx, created.UpdatedAt, encodeClient(created))
}

// GetClient は取引先を取得します。
func (h *DirectoryHandler) GetClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	found, err := h.svc.GetClient(ctx, directory.GetClientInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return respond(ctx, found.UpdatedAt, encodeClient(found))
}

// ListClients は取引先の一覧を取得します。
func (h *DirectoryHandler) ListClients(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.ListClientsInput{PageSize: d.integer("pageSize"), PageToken: d.id("pageToken")}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.svc.ListClients(ctx, input)
	if err != nil {
		return nil, err
	}
	return list(result.Clients, result.NextPageToken, encodeClient).toStruct()
}

// UpdateClient は取引先を更新します。
func (h *DirectoryHandler) UpdateClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.UpdateClientInput{ID: d.id("id"), ExpectedVersion: d.version(), ClientPatch: decodeClientPatch(d)}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.svc.UpdateClient(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(ctx, updated.UpdatedAt, encodeClient(updated))
}

// DeleteClient は取引先と配下のレコードを削除します。
func (h *DirectoryHandler) DeleteClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteClient(ctx, directory.DeleteClientInput{ID: newDecoder(in).id("id")}); err != nil {
		return nil, err
	}
	return empty()
}

// PreviewClientDeletion は削除時に併せて削除される件数を返します。
func (h *DirectoryHandler) PreviewClientDeletion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	counts, err := h.svc.PreviewClientDeletion(ctx, directory.DeleteClientInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return object{
		"employees":   counts.Employees,
		"costCenters": counts.CostCenters,
		"locations":   counts.Locations,
		"assignments": counts.Assignments,
		"total":       counts.Total(),
	}.toStruct()
}

func decodeClientPatch(d *decoder) lifecycle.ClientPatch {
	var p lifecycle.ClientPatch
	p.CompanyID, p.CompanyIDSet = d.str("companyId")
	p.Name, _ = d.str("name")
	p.CountryCode, p.CountryCodeSet = d.str("countryCode")
	return p
}

func encodeClient(c *client.Client) object {
	return object{
		"id":          c.ID,
		"companyId":   c.CompanyID,
		"name":        c.Name,
		"countryCode": optionalString(c.CountryCode),
		"createdAt":   timestamp(c.CreatedAt),
		"updatedAt":   timestamp(c.UpdatedAt),
	}
}

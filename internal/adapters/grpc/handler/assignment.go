package handler

import (
	"context"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateAssignment は割当を作成し、責任者カスケードを適用します。
func (h *DirectoryHandler) CreateAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	patch := decodeAssignmentPatch(d)
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.svc.CreateAssignment(ctx, directory.CreateAssignmentInput{AssignmentPatch: patch})
	if err != nil {
		return nil, err
	}
	return respond(ctx, created.UpdatedAt, encodeAssignment(created))
}

// GetAssignment は割当を取得します。
func (h *DirectoryHandler) GetAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	found, err := h.svc.GetAssignment(ctx, directory.GetAssignmentInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return respond(ctx, found.UpdatedAt, encodeAssignment(found))
}

// ListAssignments は割当の一覧を取得します。
func (h *DirectoryHandler) ListAssignments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.ListAssignmentsInput{
		ClientID:     d.id("clientId"),
		EmployeeID:   d.id("employeeId"),
		CostCenterID: d.id("costCenterId"),
		PageSize:     d.integer("pageSize"),
		PageToken:    d.id("pageToken"),
	}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.svc.ListAssignments(ctx, input)
	if err != nil {
		return nil, err
	}
	return list(result.Assignments, result.NextPageToken, encodeAssignment).toStruct()
}

// UpdateAssignment は割当を更新します。
func (h *DirectoryHandler) UpdateAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.UpdateAssignmentInput{ID: d.id("id"), ExpectedVersion: d.version(), AssignmentPatch: decodeAssignmentPatch(d)}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.svc.UpdateAssignment(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(ctx, updated.UpdatedAt, encodeAssignment(updated))
}

// DeleteAssignment は割当を削除します。
func (h *DirectoryHandler) DeleteAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteAssignment(ctx, directory.DeleteAssignmentInput{ID: newDecoder(in).id("id")}); err != nil {
		return nil, err
	}
	return empty()
}

func decodeAssignmentPatch(d *decoder) lifecycle.AssignmentPatch {
	var p lifecycle.AssignmentPatch
	p.EmployeeID, _ = d.str("employeeId")
	p.CostCenterID, _ = d.str("costCenterId")
	p.ClientID, _ = d.str("clientId")
	p.ValidFrom, _ = d.date("validFrom")
	p.ValidTo, p.ValidToSet = d.date("validTo")
	p.IsResponsible = d.boolean("isResponsible")
	return p
}

func encodeAssignment(a *assignment.Assignment) object {
	return object{
		"id":            a.ID,
		"employeeId":    a.EmployeeID,
		"costCenterId":  a.CostCenterID,
		"clientId":      a.ClientID,
		"validFrom":     formatDate(a.ValidFrom),
		"validTo":       optionalDate(a.ValidTo),
		"isResponsible": a.IsResponsible,
		"createdAt":     timestamp(a.CreatedAt),
		"updatedAt":     timestamp(a.UpdatedAt),
	}
}

package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/directory"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateEmployee は社員を作成します。employeeId を省略すると取引先のカウンタから採番されます。
func (h *DirectoryHandler) CreateEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	patch := decodeEmployeePatch(d)
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.svc.CreateEmployee(ctx, directory.CreateEmployeeInput{EmployeePatch: patch})
	if err != nil {
		return nil, err
	}
	return respond(ctx, created.UpdatedAt, encodeEmployee(created))
}

// GetEmployee は社員を取得します。
func (h *DirectoryHandler) GetEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	found, err := h.svc.GetEmployee(ctx, directory.GetEmployeeInput{ID: newDecoder(in).id("id")})
	if err != nil {
		return nil, err
	}
	return respond(ctx, found.UpdatedAt, encodeEmployee(found))
}

// ListEmployees は社員の一覧を取得します。
func (h *DirectoryHandler) ListEmployees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.ListEmployeesInput{
		ClientID:  d.id("clientId"),
		PageSize:  d.integer("pageSize"),
		PageToken: d.id("pageToken"),
	}
	if raw, _ := d.str("status"); raw != nil && strings.TrimSpace(*raw) != "" {
		st := employee.Status(strings.TrimSpace(*raw))
		input.Status = &st
	}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.svc.ListEmployees(ctx, input)
	if err != nil {
		return nil, err
	}
	return list(result.Employees, result.NextPageToken, encodeEmployee).toStruct()
}

// UpdateEmployee は社員を更新します。
func (h *DirectoryHandler) UpdateEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	input := directory.UpdateEmployeeInput{ID: d.id("id"), ExpectedVersion: d.version(), EmployeePatch: decodeEmployeePatch(d)}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.svc.UpdateEmployee(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(ctx, updated.UpdatedAt, encodeEmployee(updated))
}

// DeleteEmployee は社員を削除します。
func (h *DirectoryHandler) DeleteEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteEmployee(ctx, directory.DeleteEmployeeInput{ID: newDecoder(in).id("id")}); err != nil {
		return nil, err
	}
	return empty()
}

// AnonymizeFormerEmployees は before より前に退職した社員を匿名化し、件数を返します。
func (h *DirectoryHandler) AnonymizeFormerEmployees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(in); err != nil {
		return nil, err
	}

	d := newDecoder(in)
	before, _ := d.date("before")
	if d.err != nil {
		return nil, d.err
	}

	input := directory.AnonymizeFormerEmployeesInput{}
	if before != nil {
		input.Before = *before
	}
	n, err := h.svc.AnonymizeFormerEmployees(ctx, input)
	if err != nil {
		return nil, err
	}
	return object{"anonymized": n}.toStruct()
}

func decodeEmployeePatch(d *decoder) lifecycle.EmployeePatch {
	var p lifecycle.EmployeePatch
	p.EmployeeID, p.EmployeeIDSet = d.str("employeeId")
	p.FirstName, _ = d.str("firstName")
	p.LastName, _ = d.str("lastName")
	p.Email, p.EmailSet = d.str("email")
	p.EntryDate, _ = d.date("entryDate")
	p.ExitDate, p.ExitDateSet = d.date("exitDate")
	if raw, _ := d.str("status"); raw != nil {
		st := employee.Status(*raw)
		p.Status = &st
	}
	p.EmploymentType, p.EmploymentTypeSet = d.str("employmentType")
	p.IsManager = d.boolean("isManager")
	p.ClientID, _ = d.str("clientId")
	p.ManagerID, p.ManagerIDSet = d.str("managerId")
	p.CostCenterID, p.CostCenterIDSet = d.str("costCenterId")
	p.LocationID, _ = d.str("locationId")
	return p
}

func encodeEmployee(e *employee.Employee) object {
	return object{
		"id":             e.ID,
		"employeeId":     e.EmployeeID,
		"firstName":      e.FirstName,
		"lastName":       e.LastName,
		"email":          optionalString(e.Email),
		"entryDate":      formatDate(e.EntryDate),
		"exitDate":       optionalDate(e.ExitDate),
		"status":         string(e.Status),
		"employmentType": optionalString(e.EmploymentType),
		"isManager":      e.IsManager,
		"clientId":       e.ClientID,
		"managerId":      optionalString(e.ManagerID),
		"costCenterId":   optionalString(e.CostCenterID),
		"locationId":     e.LocationID,
		"anonymizedAt":   optionalTimestamp(e.AnonymizedAt),
		"createdAt":      timestamp(e.CreatedAt),
		"updatedAt":      timestamp(e.UpdatedAt),
	}
}

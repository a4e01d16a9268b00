// Package normalize converts upstream payloads into canonical model records.
//
// The upstream API and its SDK do not agree on field names (the REST paths
// return snake_case, the SDK objects PascalCase), so every canonical field
// declares an ordered alias list and the first alias present wins. Unknown
// fields are dropped. Optional fields that are absent, null or of the wrong
// type stay nil; only a missing required field is an error.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"qualermcp/internal/apperr"
	"qualermcp/internal/model"
)

// Mappable is implemented by SDK objects that can expose themselves as a
// plain key/value mapping.
type Mappable interface {
	ToMap() map[string]any
}

var (
	companyIDAliases = []string{"client_company_id", "ClientCompanyId", "clientCompanyId"}

	serviceOrderFields = struct {
		id, number, status, companyID, companyName, site, employee, created, updated []string
	}{
		id:          []string{"id", "ServiceOrderId", "serviceOrderId", "service_order_id"},
		number:      []string{"number", "ServiceOrderNumber", "serviceOrderNumber", "service_order_number"},
		status:      []string{"status", "OrderStatus", "orderStatus", "order_status"},
		companyID:   companyIDAliases,
		companyName: []string{"client_company_name", "ClientCompanyName", "clientCompanyName"},
		site:        []string{"client_site", "ClientSite", "clientSite"},
		employee:    []string{"assigned_employee", "AssignedEmployee", "assignedEmployee", "AssignedTo"},
		created:     []string{"created_at", "CreatedOn", "createdAt", "created_on"},
		updated:     []string{"updated_at", "UpdatedOn", "updatedAt", "updated_on"},
	}

	assetFields = struct {
		id, name, serial, model, manufacturer, companyID, location []string
	}{
		id:           []string{"id", "AssetId", "assetId", "asset_id"},
		name:         []string{"name", "AssetName", "assetName", "asset_name"},
		serial:       []string{"serial_number", "SerialNumber", "serialNumber"},
		model:        []string{"model", "Model", "ModelNumber"},
		manufacturer: []string{"manufacturer", "Manufacturer", "ManufacturerName"},
		companyID:    companyIDAliases,
		location:     []string{"location", "Location", "AssetLocation"},
	}

	documentFields = struct {
		id, filename, uploadedBy, uploadedAt, size []string
	}{
		id:         []string{"id", "DocumentId", "documentId", "document_id"},
		filename:   []string{"filename", "FileName", "fileName", "file_name"},
		uploadedBy: []string{"uploaded_by", "UploadedBy", "uploadedBy"},
		uploadedAt: []string{"uploaded_at", "UploadedOn", "uploadedAt", "UploadDate"},
		size:       []string{"size_bytes", "SizeBytes", "sizeBytes", "FileSize", "size"},
	}
)

// ServiceOrder normalizes one service order payload.
func ServiceOrder(raw any) (model.ServiceOrder, error) {
	m, err := ToMap(model.KindServiceOrder, raw)
	if err != nil {
		return model.ServiceOrder{}, err
	}
	f := serviceOrderFields
	id, ok := int64Field(m, f.id)
	if !ok {
		return model.ServiceOrder{}, apperr.Schema(string(model.KindServiceOrder), "id")
	}
	number, ok := stringField(m, f.number)
	if !ok {
		return model.ServiceOrder{}, apperr.Schema(string(model.KindServiceOrder), "number")
	}
	return model.ServiceOrder{
		ID:                id,
		Number:            number,
		Status:            optString(m, f.status),
		ClientCompanyID:   optInt64(m, f.companyID),
		ClientCompanyName: optString(m, f.companyName),
		ClientSite:        optString(m, f.site),
		AssignedEmployee:  optString(m, f.employee),
		CreatedAt:         optString(m, f.created),
		UpdatedAt:         optString(m, f.updated),
	}, nil
}

// Asset normalizes one asset payload.
func Asset(raw any) (model.Asset, error) {
	m, err := ToMap(model.KindAsset, raw)
	if err != nil {
		return model.Asset{}, err
	}
	f := assetFields
	id, ok := int64Field(m, f.id)
	if !ok {
		return model.Asset{}, apperr.Schema(string(model.KindAsset), "id")
	}
	name, ok := stringField(m, f.name)
	if !ok {
		return model.Asset{}, apperr.Schema(string(model.KindAsset), "name")
	}
	return model.Asset{
		ID:              id,
		Name:            name,
		SerialNumber:    optString(m, f.serial),
		Model:           optString(m, f.model),
		Manufacturer:    optString(m, f.manufacturer),
		ClientCompanyID: optInt64(m, f.companyID),
		Location:        optString(m, f.location),
	}, nil
}

// Document normalizes one document payload belonging to service order soID.
func Document(soID int64, raw any) (model.Document, error) {
	m, err := ToMap(model.KindDocument, raw)
	if err != nil {
		return model.Document{}, err
	}
	f := documentFields
	id, ok := int64Field(m, f.id)
	if !ok {
		return model.Document{}, apperr.Schema(string(model.KindDocument), "id")
	}
	filename, ok := stringField(m, f.filename)
	if !ok {
		return model.Document{}, apperr.Schema(string(model.KindDocument), "filename")
	}
	return model.Document{
		ID:             id,
		ServiceOrderID: soID,
		Filename:       filename,
		UploadedBy:     optString(m, f.uploadedBy),
		UploadedAt:     optString(m, f.uploadedAt),
		SizeBytes:      optInt64(m, f.size),
	}, nil
}

// DocumentID extracts the identifier of a freshly created document, if any.
func DocumentID(raw any) *int64 {
	m, err := ToMap(model.KindDocument, raw)
	if err != nil {
		return nil
	}
	return optInt64(m, documentFields.id)
}

// Records normalizes a slice of payloads with fn, preserving order.
func Records[T any](items []any, fn func(any) (T, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, it := range items {
		rec, err := fn(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ToMap turns raw into a key/value mapping. Maps are used as-is, Mappable
// values are asked for their mapping and anything else goes through JSON.
func ToMap(kind model.Kind, raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case Mappable:
		if m := v.ToMap(); m != nil {
			return m, nil
		}
	case nil:
	default:
		b, err := json.Marshal(v)
		if err == nil {
			dec := json.NewDecoder(bytes.NewReader(b))
			dec.UseNumber()
			var m map[string]any
			if dec.Decode(&m) == nil && m != nil {
				return m, nil
			}
		}
	}
	return nil, &apperr.Error{Kind: apperr.KindSchema, Resource: string(kind), Msg: fmt.Sprintf("%s payload is not an object", kind)}
}

func lookup(m map[string]any, aliases []string) (any, bool) {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, aliases []string) (string, bool) {
	v, ok := lookup(m, aliases)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	}
	return "", false
}

func int64Field(m map[string]any, aliases []string) (int64, bool) {
	v, ok := lookup(m, aliases)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func optString(m map[string]any, aliases []string) *string {
	if s, ok := stringField(m, aliases); ok {
		return &s
	}
	return nil
}

func optInt64(m map[string]any, aliases []string) *int64 {
	if i, ok := int64Field(m, aliases); ok {
		return &i
	}
	return nil
}

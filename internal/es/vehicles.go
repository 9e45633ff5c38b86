package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/roadblock/internal/models"
)

type vehicleDoc struct {
	ID            uint   `json:"id"`
	PlateNumber   string `json:"plateNumber"`
	MakeAndModel  string `json:"makeAndModel"`
	DriverName    string `json:"driverName"`
	LicenseNumber string `json:"licenseNumber"`
}

const vehicleMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "plateNumber":   {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "makeAndModel":  {"type": "text"},
      "driverName":    {"type": "text"},
      "licenseNumber": {"type": "keyword"}
    }
  }
}`

// VehicleIndex keeps a searchable copy of vehicles. The database stays the
// source of truth; search results are ids that are re-read from it.
type VehicleIndex struct {
	Client *elasticsearch.Client
	Index  string
}

func NewVehicleIndex(client *elasticsearch.Client, index string) *VehicleIndex {
	return &VehicleIndex{Client: client, Index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *VehicleIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.Client.Indices.Exists([]string{x.Index}, x.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = x.Client.Indices.Create(
		x.Index,
		x.Client.Indices.Create.WithContext(ctx),
		x.Client.Indices.Create.WithBody(strings.NewReader(vehicleMapping)),
	)
	if err != nil {
		return fmt.Errorf("es: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

func (x *VehicleIndex) IndexVehicle(ctx context.Context, v *models.Vehicle) error {
	doc := vehicleDoc{
		ID:           v.ID,
		PlateNumber:  v.PlateNumber,
		MakeAndModel: v.MakeAndModel,
	}
	if v.Driver != nil {
		doc.DriverName = v.Driver.FullName
		doc.LicenseNumber = v.Driver.LicenseNumber
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("es: encode vehicle: %w", err)
	}

	res, err := x.Client.Index(
		x.Index,
		&buf,
		x.Client.Index.WithContext(ctx),
		x.Client.Index.WithDocumentID(strconv.FormatUint(uint64(v.ID), 10)),
		x.Client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: index vehicle: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index vehicle", res.Status(), res.Body)
	}
	return nil
}

// DeleteVehicle treats a missing document as already deleted.
func (x *VehicleIndex) DeleteVehicle(ctx context.Context, id uint) error {
	res, err := x.Client.Delete(
		x.Index,
		strconv.FormatUint(uint64(id), 10),
		x.Client.Delete.WithContext(ctx),
		x.Client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: delete vehicle: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete vehicle", res.Status(), res.Body)
	}
	return nil
}

func (x *VehicleIndex) SearchVehicles(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"plateNumber^3", "makeAndModel^2", "driverName", "licenseNumber"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := x.Client.Search(
		x.Client.Search.WithContext(ctx),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 }                 `json:"total"`
			Hits  []struct{ Source vehicleDoc `json:"_source"` } `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]uint, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		ids[i] = hit.Source.ID
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(body)
	return fmt.Errorf("es: %s: %s: %s", op, status, bytes.TrimSpace(b))
}

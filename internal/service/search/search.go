package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/vcms-io/vcms/internal/models"
)

// Doc is the slice of a certificate that gets indexed; image payloads are
// deliberately left out of the index.
type Doc struct {
	ID             string `json:"id"`
	CertificateNo  string `json:"certificate_no"`
	RetailerID     string `json:"retailer_id"`
	DealerName     string `json:"dealer_name"`
	RegistrationNo string `json:"registration_no"`
	ChassisNo      string `json:"chassis_no"`
	OwnerName      string `json:"owner_name"`
	Status         string `json:"status"`
}

func DocFromCertificate(cert *models.Certificate) Doc {
	return Doc{
		ID:             cert.ID,
		CertificateNo:  cert.CertificateNo,
		RetailerID:     cert.RetailerID,
		DealerName:     cert.DealerName,
		RegistrationNo: cert.VehicleDetails.RegistrationNo,
		ChassisNo:      cert.VehicleDetails.ChassisNo,
		OwnerName:      cert.OwnerDetails.OwnerName,
		Status:         cert.Status,
	}
}

func Index(ctx context.Context, es *elasticsearch.Client, index string, cert *models.Certificate) error {
	doc := DocFromCertificate(cert)
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := es.Index(
		index,
		bytes.NewReader(body),
		es.Index.WithDocumentID(doc.ID),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy multi_match over the indexed certificate fields.
// retailerIDs narrows the hits to those owners; empty means unscoped.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, retailerIDs []string, from, size int) (int64, []Doc, error) {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"certificate_no^2", "registration_no^2", "chassis_no", "dealer_name", "owner_name"},
			"fuzziness": "AUTO",
		},
	}

	var q map[string]interface{}
	if len(retailerIDs) > 0 {
		q = map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   match,
				"filter": map[string]interface{}{"terms": map[string]interface{}{"retailer_id": retailerIDs}},
			},
		}
	} else {
		q = match
	}

	body := map[string]interface{}{
		"query": q,
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source Doc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]Doc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

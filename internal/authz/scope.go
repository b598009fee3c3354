// Package authz narrows user and certificate queries to what the caller's
// role is allowed to see: admins see everything, distributors see their own
// retailer network, retailers see only themselves.
package authz

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/models"
)

var ErrForbidden = errors.New("access forbidden")

// Identity is the request-scoped caller, resolved from the bearer token.
type Identity struct {
	ID   string
	Role string
}

// RetailerIDs lists the retailers created under a distributor.
func RetailerIDs(db *gorm.DB, distributorID string) ([]string, error) {
	var ids []string
	err := db.Model(&models.User{}).
		Where("role = ? AND parent_id = ?", models.RoleRetailer, distributorID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ScopeUsers returns the users visible to the caller. Retailers get an
// empty list rather than an error.
func ScopeUsers(db *gorm.DB, ident Identity) ([]models.User, error) {
	var users []models.User
	switch ident.Role {
	case models.RoleAdmin:
		if err := db.Order("created_at ASC").Find(&users).Error; err != nil {
			return nil, err
		}
	case models.RoleDistributor:
		err := db.Where("role = ? AND parent_id = ?", models.RoleRetailer, ident.ID).
			Order("created_at ASC").Find(&users).Error
		if err != nil {
			return nil, err
		}
	default:
		users = []models.User{}
	}
	return users, nil
}

// ScopeCertificates returns a query already narrowed to the caller's reach.
func ScopeCertificates(db *gorm.DB, ident Identity) (*gorm.DB, error) {
	// the trailing Session makes the returned query safe to reuse for both
	// a count and a find
	reusable := func(q *gorm.DB) *gorm.DB { return q.Session(&gorm.Session{}) }

	base := db.Model(&models.Certificate{})
	switch ident.Role {
	case models.RoleAdmin:
		return reusable(base), nil
	case models.RoleDistributor:
		ids, err := RetailerIDs(db, ident.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			// no network yet; match nothing
			return reusable(base.Where("1 = 0")), nil
		}
		return reusable(base.Where("retailer_id IN ?", ids)), nil
	case models.RoleRetailer:
		return reusable(base.Where("retailer_id = ?", ident.ID)), nil
	default:
		return nil, ErrForbidden
	}
}

// CanViewCertificate applies the same scoping rule to a single record.
func CanViewCertificate(db *gorm.DB, ident Identity, cert *models.Certificate) (bool, error) {
	switch ident.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleDistributor:
		var count int64
		err := db.Model(&models.User{}).
			Where("id = ? AND parent_id = ?", cert.RetailerID, ident.ID).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count > 0, nil
	case models.RoleRetailer:
		return cert.RetailerID == ident.ID, nil
	default:
		return false, nil
	}
}

// CanMutateCertificate: only the owning retailer may change a certificate.
func CanMutateCertificate(ident Identity, cert *models.Certificate) bool {
	return ident.Role == models.RoleRetailer && cert.RetailerID == ident.ID
}

package authz

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Certificate{}))
	return db
}

func mkUser(t *testing.T, db *gorm.DB, username, role, parentID string) models.User {
	t.Helper()
	u := models.User{Username: username, PasswordHash: "x", Role: role, ParentID: parentID}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func mkCert(t *testing.T, db *gorm.DB, retailerID, status string) models.Certificate {
	t.Helper()
	cert := models.Certificate{RetailerID: retailerID, DealerName: "d", DealerLicense: "l", Status: status}
	require.NoError(t, db.Create(&cert).Error)
	return cert
}

func TestRetailerIDs_OnlyOwnNetwork(t *testing.T) {
	db := initTestDB(t)

	d1 := mkUser(t, db, "dist1", models.RoleDistributor, "")
	d2 := mkUser(t, db, "dist2", models.RoleDistributor, "")
	r1 := mkUser(t, db, "ret1", models.RoleRetailer, d1.ID)
	r2 := mkUser(t, db, "ret2", models.RoleRetailer, d1.ID)
	mkUser(t, db, "ret3", models.RoleRetailer, d2.ID)

	ids, err := RetailerIDs(db, d1.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, ids)
}

func TestScopeUsers(t *testing.T) {
	db := initTestDB(t)

	admin := mkUser(t, db, "admin", models.RoleAdmin, "")
	d1 := mkUser(t, db, "dist1", models.RoleDistributor, "")
	d2 := mkUser(t, db, "dist2", models.RoleDistributor, "")
	r1 := mkUser(t, db, "ret1", models.RoleRetailer, d1.ID)
	r2 := mkUser(t, db, "ret2", models.RoleRetailer, d2.ID)

	t.Run("admin sees all", func(t *testing.T) {
		users, err := ScopeUsers(db, Identity{ID: admin.ID, Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Len(t, users, 5)
	})

	t.Run("distributor sees own retailers only", func(t *testing.T) {
		users, err := ScopeUsers(db, Identity{ID: d1.ID, Role: models.RoleDistributor})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, r1.ID, users[0].ID)
	})

	t.Run("retailer gets empty list", func(t *testing.T) {
		users, err := ScopeUsers(db, Identity{ID: r2.ID, Role: models.RoleRetailer})
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestScopeCertificates(t *testing.T) {
	db := initTestDB(t)

	d1 := mkUser(t, db, "dist1", models.RoleDistributor, "")
	d2 := mkUser(t, db, "dist2", models.RoleDistributor, "")
	r1 := mkUser(t, db, "ret1", models.RoleRetailer, d1.ID)
	r2 := mkUser(t, db, "ret2", models.RoleRetailer, d2.ID)

	c1 := mkCert(t, db, r1.ID, models.StatusDraft)
	c2 := mkCert(t, db, r2.ID, models.StatusSubmitted)

	fetch := func(ident Identity) []models.Certificate {
		t.Helper()
		q, err := ScopeCertificates(db, ident)
		require.NoError(t, err)
		var certs []models.Certificate
		require.NoError(t, q.Find(&certs).Error)
		return certs
	}

	t.Run("admin sees all", func(t *testing.T) {
		assert.Len(t, fetch(Identity{ID: "any", Role: models.RoleAdmin}), 2)
	})

	t.Run("distributor sees network certificates", func(t *testing.T) {
		certs := fetch(Identity{ID: d1.ID, Role: models.RoleDistributor})
		require.Len(t, certs, 1)
		assert.Equal(t, c1.ID, certs[0].ID)
	})

	t.Run("distributor with no retailers sees nothing", func(t *testing.T) {
		d3 := mkUser(t, db, "dist3", models.RoleDistributor, "")
		assert.Empty(t, fetch(Identity{ID: d3.ID, Role: models.RoleDistributor}))
	})

	t.Run("retailer sees own certificates", func(t *testing.T) {
		certs := fetch(Identity{ID: r2.ID, Role: models.RoleRetailer})
		require.Len(t, certs, 1)
		assert.Equal(t, c2.ID, certs[0].ID)
	})

	t.Run("unknown role is forbidden", func(t *testing.T) {
		_, err := ScopeCertificates(db, Identity{ID: "x", Role: "intruder"})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCanViewCertificate(t *testing.T) {
	db := initTestDB(t)

	d1 := mkUser(t, db, "dist1", models.RoleDistributor, "")
	d2 := mkUser(t, db, "dist2", models.RoleDistributor, "")
	r1 := mkUser(t, db, "ret1", models.RoleRetailer, d1.ID)
	cert := mkCert(t, db, r1.ID, models.StatusDraft)

	tests := []struct {
		name  string
		ident Identity
		want  bool
	}{
		{"admin", Identity{ID: "any", Role: models.RoleAdmin}, true},
		{"distributor in network", Identity{ID: d1.ID, Role: models.RoleDistributor}, true},
		{"distributor outside network", Identity{ID: d2.ID, Role: models.RoleDistributor}, false},
		{"owning retailer", Identity{ID: r1.ID, Role: models.RoleRetailer}, true},
		{"other retailer", Identity{ID: "someone-else", Role: models.RoleRetailer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanViewCertificate(db, tt.ident, &cert)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanMutateCertificate(t *testing.T) {
	cert := models.Certificate{RetailerID: "ret-1"}

	assert.True(t, CanMutateCertificate(Identity{ID: "ret-1", Role: models.RoleRetailer}, &cert))
	assert.False(t, CanMutateCertificate(Identity{ID: "ret-2", Role: models.RoleRetailer}, &cert))
	assert.False(t, CanMutateCertificate(Identity{ID: "ret-1", Role: models.RoleAdmin}, &cert))
	assert.False(t, CanMutateCertificate(Identity{ID: "ret-1", Role: models.RoleDistributor}, &cert))
}

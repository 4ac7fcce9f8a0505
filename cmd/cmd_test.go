package cmd

import (
	"testing"

	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
	userDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestCmd(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Cmd Suite")
}

var _ = ginkgo.Describe("seed", func() {
	var db *gorm.DB

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		sqlDB, err := db.DB()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		gomega.Expect(db.AutoMigrate(&userDatamodel.User{}, &companyDatamodel.Company{}, &membershipDatamodel.Membership{})).To(gomega.Succeed())
	})

	ginkgo.It("creates the demo tenants and can be run twice", func() {
		// Given an empty database
		// When seeding twice
		gomega.Expect(seed(db, "hash")).To(gomega.Succeed())
		gomega.Expect(seed(db, "hash")).To(gomega.Succeed())

		// Then every row exists exactly once
		var users, companies, members int64
		gomega.Expect(db.Model(&userDatamodel.User{}).Count(&users).Error).NotTo(gomega.HaveOccurred())
		gomega.Expect(db.Model(&companyDatamodel.Company{}).Count(&companies).Error).NotTo(gomega.HaveOccurred())
		gomega.Expect(db.Model(&membershipDatamodel.Membership{}).Count(&members).Error).NotTo(gomega.HaveOccurred())
		gomega.Expect(users).To(gomega.Equal(int64(3)))
		gomega.Expect(companies).To(gomega.Equal(int64(2)))
		gomega.Expect(members).To(gomega.Equal(int64(2)))

		var root userDatamodel.User
		gomega.Expect(db.Where("email = ?", "root@mail.com").First(&root).Error).NotTo(gomega.HaveOccurred())
		gomega.Expect(root.IsSuperAdmin).To(gomega.BeTrue())

		var alice membershipDatamodel.Membership
		gomega.Expect(db.Joins("JOIN users ON users.id = memberships.user_id").
			Where("users.email = ?", "alice@mail.com").First(&alice).Error).NotTo(gomega.HaveOccurred())
		gomega.Expect(alice.Role).To(gomega.Equal("admin"))
	})
})

var _ = ginkgo.Describe("splitOrigins", func() {
	ginkgo.It("trims and drops blanks", func() {
		gomega.Expect(splitOrigins(" http://a.test, ,http://b.test")).To(gomega.Equal([]string{"http://a.test", "http://b.test"}))
		gomega.Expect(splitOrigins("")).To(gomega.BeNil())
	})
})

var _ = ginkgo.Describe("auditFilterFromFlags", func() {
	ginkgo.AfterEach(func() {
		auditFrom, auditTo, auditSecurityOnly, auditActorID, auditCompanyID, auditLimit = "", "", false, 0, 0, 100
	})

	ginkgo.It("maps flags onto the filter", func() {
		auditSecurityOnly = true
		auditCompanyID = 7
		auditLimit = 5

		f, err := auditFilterFromFlags()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(*f.IsSecurityEvent).To(gomega.BeTrue())
		gomega.Expect(*f.CompanyID).To(gomega.Equal(int64(7)))
		gomega.Expect(f.Limit).To(gomega.Equal(5))
	})

	ginkgo.It("rejects a malformed timestamp", func() {
		auditFrom = "yesterday"
		_, err := auditFilterFromFlags()
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

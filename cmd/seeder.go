package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/company-authz/internal/core/catalog"
	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
	userDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a super-admin and two demo companies for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		if err := seed(gdb, string(hash)); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seed completed")
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password given to every seeded user")
}

type seedUser struct {
	Email      string
	Name       string
	SuperAdmin bool
}

type seedMember struct {
	Email string
	Role  catalog.Role
}

// seed is idempotent: existing rows are looked up by their natural key.
func seed(db *gorm.DB, passwordHash string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		users := []seedUser{
			{Email: "root@mail.com", Name: "Root", SuperAdmin: true},
			{Email: "alice@mail.com", Name: "Alice"},
			{Email: "bob@mail.com", Name: "Bob"},
		}

		ids := make(map[string]int64, len(users))
		for _, u := range users {
			id, err := ensureUser(tx, u, passwordHash)
			if err != nil {
				return err
			}
			ids[u.Email] = id
		}
		rootID := ids["root@mail.com"]

		companies := map[string][]seedMember{
			"Acme": {
				{Email: "alice@mail.com", Role: catalog.RoleAdmin},
				{Email: "bob@mail.com", Role: catalog.RoleEmployee},
			},
			"Globex": nil,
		}

		for name, members := range companies {
			companyID, err := ensureCompany(tx, name, rootID)
			if err != nil {
				return err
			}
			for _, m := range members {
				row := &membershipDatamodel.Membership{
					UserID:     ids[m.Email],
					CompanyID:  companyID,
					Role:       string(m.Role),
					AssignedBy: &rootID,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
					DoNothing: true,
				}).Create(row).Error
				if err != nil {
					return fmt.Errorf("membership %s@%s: %w", m.Email, name, err)
				}
			}
			fmt.Printf("Seeded company %s with %d member(s)\n", name, len(members))
		}

		return nil
	})
}

func ensureUser(tx *gorm.DB, u seedUser, passwordHash string) (int64, error) {
	var row userDatamodel.User
	err := tx.Where("email = ?", u.Email).First(&row).Error
	if err == nil {
		fmt.Println("user already exists:", u.Email)
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("lookup user %s: %w", u.Email, err)
	}

	row = userDatamodel.User{
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: passwordHash,
		IsSuperAdmin: u.SuperAdmin,
		IsActive:     true,
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	fmt.Println("Seeded user:", u.Email)
	return row.ID, nil
}

func ensureCompany(tx *gorm.DB, name string, createdBy int64) (int64, error) {
	var row companyDatamodel.Company
	err := tx.Where("name = ?", name).First(&row).Error
	if err == nil {
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("lookup company %s: %w", name, err)
	}

	row = companyDatamodel.Company{Name: name, IsActive: true, CreatedBy: &createdBy}
	if err := tx.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert company %s: %w", name, err)
	}
	return row.ID, nil
}

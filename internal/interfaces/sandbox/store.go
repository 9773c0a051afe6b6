package sandbox

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/infrastructure/logger"
)

// InMemoryDSN is a private in-memory sqlite database.
const InMemoryDSN = "file::memory:"

var (
	seedCategories = []string{"shirts", "dresses", "jeans", "jackets", "shoes", "accessories"}
	seedSizes      = []string{"XS", "S", "M", "L", "XL"}
)

// OpenDB opens the sqlite database at dsn and migrates the schema.
func OpenDB(dsn string, log *zap.Logger, logLevel string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = InMemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.GormLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database lives as long as its connection.
	if strings.Contains(dsn, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// SeedProducts inserts n generated products unless the catalog already has
// some. The same seed yields the same catalog.
func SeedProducts(db *gorm.DB, n int, seed uint64) (int, error) {
	var count int64
	if err := db.Model(&ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 || n <= 0 {
		return 0, nil
	}

	f := gofakeit.New(seed)
	products := make([]ProductModel, 0, n)
	for i := 0; i < n; i++ {
		price := round2(f.Price(15, 250))
		p := ProductModel{
			Name:              f.ProductName(),
			Description:       f.Sentence(12),
			Price:             price,
			Images:            []string{fmt.Sprintf("https://picsum.photos/seed/%d/600/800", i+1)},
			Colors:            []string{f.Color(), f.Color()},
			Sizes:             seedSizes[:2+f.Number(0, len(seedSizes)-2)],
			Category:          f.RandomString(seedCategories),
			Rating:            round2(f.Float64Range(2.5, 5)),
			ReviewCount:       f.Number(0, 400),
			InventoryQuantity: f.Number(0, 60),
			SKU:               fmt.Sprintf("SKU-%05d", i+1),
			Status:            "active",
			Featured:          i%5 == 0,
		}
		if f.Number(1, 4) == 1 {
			sale := round2(price * 0.8)
			p.SalePrice = &sale
		}
		products = append(products, p)
	}
	if err := db.CreateInBatches(products, 100).Error; err != nil {
		return 0, fmt.Errorf("seeding products: %w", err)
	}
	return len(products), nil
}

// EnsureUser creates the account when the email is not registered yet.
func EnsureUser(db *gorm.DB, email, password, role string) (*UserModel, error) {
	var u UserModel
	err := db.Where("email = ?", email).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u = UserModel{Email: email, PasswordHash: hash, Role: role, FirstName: "Sandbox", LastName: role}
	if err := db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("creating user %s: %w", email, err)
	}
	return &u, nil
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// admin reports whether the account has the admin role.
func (u *UserModel) admin() bool {
	return u.Role == identity.RoleAdmin
}

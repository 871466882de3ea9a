// Package db is the backend store: a GORM repository over the accounts,
// companies, users, assets and metrics tables.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rows "github.com/gartstein/arctecfox/internal/arctecfox/db/models"
	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tables that FetchAll may read.
var readableTables = map[string]bool{
	"assets":    true,
	"metrics":   true,
	"companies": true,
	"users":     true,
}

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	return Open(postgres.Open(dsn))
}

// Open connects through the given dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&rows.Account{},
		&rows.Company{},
		&rows.User{},
		&rows.Asset{},
		&rows.Metric{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) FindCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	var company rows.Company
	result := r.db.WithContext(ctx).Where("name = ?", name).Take(&company)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return companyToDomain(&company), nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	row := rows.Company{
		ID:          company.ID,
		Name:        company.Name,
		Industry:    company.Industry,
		CompanySize: company.CompanySize,
	}
	result := r.db.WithContext(ctx).Create(&row)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	return nil
}

// UpsertUser inserts the user or overwrites every column of the existing row
// with the same id, then returns the stored row.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	completed := user.ProfileCompleted
	row := rows.User{
		ID:               user.ID,
		Email:            user.Email,
		FullName:         user.FullName,
		Role:             user.Role,
		CompanyID:        user.CompanyID,
		Industry:         user.Industry,
		CompanySize:      user.CompanySize,
		CompanyName:      user.CompanyName,
		ProfileCompleted: &completed,
		UpdatedAt:        user.UpdatedAt,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row)
	if result.Error != nil {
		return nil, result.Error
	}

	return r.findUser(ctx, user.ID)
}

func (r *Repository) findUser(ctx context.Context, id string) (*models.User, error) {
	var user rows.User
	result := r.db.WithContext(ctx).Take(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return userToDomain(&user), nil
}

// ProfileCompleted reads the single profile_completed column. A nil result
// means the row exists but the flag was never set.
func (r *Repository) ProfileCompleted(ctx context.Context, userID string) (*bool, error) {
	var user rows.User
	result := r.db.WithContext(ctx).
		Select("profile_completed").
		Where("id = ?", userID).
		Take(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return user.ProfileCompleted, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *rows.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	return nil
}

func (r *Repository) FindAccountByEmail(ctx context.Context, email string) (*rows.Account, error) {
	var account rows.Account
	result := r.db.WithContext(ctx).Where("email = ?", email).Take(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

func (r *Repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*rows.Account, error) {
	var account rows.Account
	result := r.db.WithContext(ctx).Take(&account, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// FetchAll returns every row of a readable table as column/value maps.
func (r *Repository) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	if !readableTables[table] {
		return nil, fmt.Errorf("%w: unknown table %q", e.ErrInvalidInput, table)
	}
	var result []map[string]interface{}
	if err := r.db.WithContext(ctx).Table(table).Find(&result).Error; err != nil {
		return nil, err
	}
	if result == nil {
		result = []map[string]interface{}{}
	}
	return result, nil
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ping checks the database connection. The server's health status follows it.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// isDuplicate recognises unique violations from drivers that do not
// translate them into gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func companyToDomain(c *rows.Company) *models.Company {
	return &models.Company{
		ID:          c.ID,
		Name:        c.Name,
		Industry:    c.Industry,
		CompanySize: c.CompanySize,
	}
}

func userToDomain(u *rows.User) *models.User {
	user := &models.User{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		CompanyID:   u.CompanyID,
		Industry:    u.Industry,
		CompanySize: u.CompanySize,
		CompanyName: u.CompanyName,
		UpdatedAt:   u.UpdatedAt.UTC().Truncate(time.Microsecond),
	}
	if u.ProfileCompleted != nil {
		user.ProfileCompleted = *u.ProfileCompleted
	}
	return user
}

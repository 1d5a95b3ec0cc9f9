package database

import (
	"fmt"
	"os"

	"fleet-dispatch/logger"
	auditModel "fleet-dispatch/models/audit"
	driverModel "fleet-dispatch/models/driver"
	logModel "fleet-dispatch/models/log"
	requestModel "fleet-dispatch/models/request"
	userModel "fleet-dispatch/models/user"
	vehicleModel "fleet-dispatch/models/vehicle"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	// Get database configuration from environment variables
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE") // Optional: "disable", "require", etc.

	// Set default sslmode if not provided
	if sslmode == "" {
		sslmode = "disable"
	}

	// Build PostgreSQL DSN string
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := autoMigrate(); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	// Handle foreign key constraints after migrations
	if err := createForeignKeyConstraints(); err != nil {
		logger.Error("Failed to create foreign key constraints", err)
		return nil, err
	}
	logger.Success("All foreign key constraints created successfully")

	// Create indexes for better performance
	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

// autoMigrate runs auto migration for all models in dependency stages
func autoMigrate() error {
	// Stage 1: Core foundation models
	stage1Models := []interface{}{
		&userModel.User{},
		&vehicleModel.Vehicle{},
		&driverModel.Driver{},
	}

	for _, model := range stage1Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: Models with dependencies on Stage 1
	stage2Models := []interface{}{
		&requestModel.Request{},
		&auditModel.Entry{},
	}

	for _, model := range stage2Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: Remaining models
	remainingModels := []interface{}{
		// Logging
		&logModel.Log{},
	}

	for _, model := range remainingModels {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes() error {
	// User indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)").Error; err != nil {
		return fmt.Errorf("failed to create user username index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)").Error; err != nil {
		return fmt.Errorf("failed to create user email index: %w", err)
	}

	// Vehicle indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_vehicles_plate_number ON vehicles(plate_number)").Error; err != nil {
		return fmt.Errorf("failed to create vehicle plate_number index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status)").Error; err != nil {
		return fmt.Errorf("failed to create vehicle status index: %w", err)
	}

	// Driver indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_drivers_status ON drivers(status)").Error; err != nil {
		return fmt.Errorf("failed to create driver status index: %w", err)
	}

	// Request indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)").Error; err != nil {
		return fmt.Errorf("failed to create request status index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_requests_user_id ON requests(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create request user_id index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_requests_assigned_vehicle_id ON requests(assigned_vehicle_id)").Error; err != nil {
		return fmt.Errorf("failed to create request assigned_vehicle_id index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_requests_assigned_driver_id ON requests(assigned_driver_id)").Error; err != nil {
		return fmt.Errorf("failed to create request assigned_driver_id index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_requests_departure_date ON requests(departure_date)").Error; err != nil {
		return fmt.Errorf("failed to create request departure_date index: %w", err)
	}

	// Audit log indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_audit_log_request_id ON audit_log(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create audit_log request_id index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create audit_log created_at index: %w", err)
	}

	// Log indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create log created_at index: %w", err)
	}

	return nil
}

// createForeignKeyConstraints creates foreign key constraints after auto migration
func createForeignKeyConstraints() error {
	// Define constraints with their names for checking existence
	constraints := []struct {
		name string
		sql  string
	}{
		{
			name: "fk_requests_user",
			sql: `ALTER TABLE requests ADD CONSTRAINT fk_requests_user
				  FOREIGN KEY (user_id) REFERENCES users(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_requests_vehicle",
			sql: `ALTER TABLE requests ADD CONSTRAINT fk_requests_vehicle
				  FOREIGN KEY (assigned_vehicle_id) REFERENCES vehicles(id)
				  ON UPDATE CASCADE ON DELETE SET NULL`,
		},
		{
			name: "fk_requests_driver",
			sql: `ALTER TABLE requests ADD CONSTRAINT fk_requests_driver
				  FOREIGN KEY (assigned_driver_id) REFERENCES drivers(id)
				  ON UPDATE CASCADE ON DELETE SET NULL`,
		},
		{
			name: "fk_audit_log_request",
			sql: `ALTER TABLE audit_log ADD CONSTRAINT fk_audit_log_request
				  FOREIGN KEY (request_id) REFERENCES requests(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
	}

	for _, constraint := range constraints {
		// Check if constraint already exists
		var exists bool
		checkSQL := `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE constraint_name = $1
			)
		`

		err := DB.Raw(checkSQL, constraint.name).Scan(&exists).Error
		if err != nil {
			logger.Warning(fmt.Sprintf("Failed to check constraint existence: %s - Error: %v", constraint.name, err))
			continue
		}

		if !exists {
			if err := DB.Exec(constraint.sql).Error; err != nil {
				logger.Warning(fmt.Sprintf("Failed to create constraint: %s - Error: %v", constraint.name, err))
			} else {
				logger.Success(fmt.Sprintf("Successfully created constraint: %s", constraint.name))
			}
		} else {
			logger.Debug(fmt.Sprintf("Constraint already exists: %s", constraint.name))
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				log.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		log.Warn("failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_in", retryInterval),
			zap.Error(err))
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		first_name VARCHAR(30) NOT NULL,
		last_name VARCHAR(30) NOT NULL,
		phone_number VARCHAR(15),
		role TEXT NOT NULL CHECK (role IN ('teacher', 'student', 'admin')),
		status TEXT NOT NULL CHECK (status IN ('active', 'suspended', 'blocked', 'deleted')) DEFAULT 'active',
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS teacher_profiles (
		user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		bio TEXT,
		qualifications TEXT,
		specialization VARCHAR(100),
		years_of_experience INTEGER CHECK (years_of_experience >= 0),
		institution VARCHAR(100),
		department VARCHAR(100),
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS student_profiles (
		user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		student_id VARCHAR(50) UNIQUE,
		date_of_birth DATE,
		grade_level VARCHAR(50),
		parent_guardian_name VARCHAR(100),
		parent_guardian_contact VARCHAR(20),
		school_name VARCHAR(100),
		academic_interests TEXT,
		onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS otp_codes (
		id BIGSERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		purpose VARCHAR(32) NOT NULL CHECK (purpose IN ('email_verification', 'password_reset')),
		code_hash TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		consumed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		consumed_at TIMESTAMP WITH TIME ZONE
	);

	-- at most one outstanding code per (user, purpose)
	CREATE UNIQUE INDEX IF NOT EXISTS uq_otp_codes_outstanding ON otp_codes(user_id, purpose) WHERE NOT consumed;
	CREATE INDEX IF NOT EXISTS idx_otp_codes_lookup ON otp_codes(user_id, purpose, created_at DESC);

	CREATE TABLE IF NOT EXISTS courses (
		id BIGSERIAL PRIMARY KEY,
		teacher_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		code VARCHAR(20) UNIQUE NOT NULL,
		description TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		CHECK (end_date >= start_date)
	);
	CREATE INDEX IF NOT EXISTS idx_courses_teacher_id ON courses(teacher_id);

	CREATE TABLE IF NOT EXISTS enrollments (
		id BIGSERIAL PRIMARY KEY,
		student_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		enrolled_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (student_id, course_id)
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id BIGSERIAL PRIMARY KEY,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		due_date TIMESTAMP WITH TIME ZONE NOT NULL,
		max_points INTEGER NOT NULL DEFAULT 100 CHECK (max_points > 0),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_course_id ON assignments(course_id);

	CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		assignment_id BIGINT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		student_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		submitted_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		points INTEGER CHECK (points >= 0),
		is_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
		feedback TEXT,
		UNIQUE (assignment_id, student_id)
	);

	CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ language 'plpgsql';

	DO $$
	DECLARE
		t TEXT;
	BEGIN
		FOREACH t IN ARRAY ARRAY['users', 'teacher_profiles', 'student_profiles', 'courses', 'assignments']
		LOOP
			IF NOT EXISTS (
				SELECT 1 FROM pg_trigger
				WHERE tgname = 'set_' || t || '_updated_at' AND tgrelid = t::regclass
			) THEN
				EXECUTE format('CREATE TRIGGER %I BEFORE UPDATE ON %I FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()',
					'set_' || t || '_updated_at', t);
			END IF;
		END LOOP;
	END
	$$;
`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db *pgxpool.Pool, log *zap.Logger) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	log.Info("schema bootstrap applied")
	return nil
}

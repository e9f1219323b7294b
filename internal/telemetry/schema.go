package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/hwmond/internal/errors"
)

// initSchema initializes the database schema for sensor samples
func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS samples (
            timestamp    INTEGER NOT NULL,
            device       TEXT    NOT NULL,
            sensor_type  TEXT    NOT NULL,
            sensor_index INTEGER NOT NULL,
            sensor       TEXT    NOT NULL,
            value        REAL    NOT NULL,
            PRIMARY KEY (timestamp, device, sensor_type, sensor_index)
        )
    `)
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}

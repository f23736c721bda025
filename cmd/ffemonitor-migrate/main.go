package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	dbPath     = flag.String("db", "/var/lib/ffemonitor/ffemonitor.db", "Path to the bbolt database")
	retention  = flag.Duration("retention", 90*24*time.Hour, "Age beyond which audit rows are pruned")
	dryRun     = flag.Bool("dry-run", false, "Show what would be pruned without making changes")
	backupPath = flag.String("backup", "", "Path to back up the database before pruning (default: <db>.backup)")
)

// bucketChecks, bucketOpenings and bucketNotifications mirror the bucket
// names the boltstore package uses; duplicated here rather than exported
// since this tool operates on the file directly, not through Repository.
var (
	bucketChecks        = []byte("checks")
	bucketOpenings      = []byte("openings")
	bucketNotifications = []byte("notifications")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("FFEMonitor Database Pruning Tool - audit log retention")
	log.Println("========================================================")

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database not found at %s", *dbPath)
	}

	cutoff := timeNow().Add(-*retention)
	log.Printf("Database: %s", *dbPath)
	log.Printf("Retention: %s (cutoff %s)", *retention, cutoff.Format(time.RFC3339))
	log.Printf("Dry run: %v", *dryRun)

	if !*dryRun {
		backupFile := *backupPath
		if backupFile == "" {
			backupFile = *dbPath + ".backup"
		}
		log.Printf("Creating backup: %s", backupFile)
		if err := copyFile(*dbPath, backupFile); err != nil {
			log.Fatalf("Failed to create backup: %v", err)
		}
		log.Println("Backup created successfully")
	}

	db, err := bolt.Open(*dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := pruneAuditLogs(db, cutoff, *dryRun); err != nil {
		log.Fatalf("Pruning failed: %v", err)
	}

	if *dryRun {
		log.Println("\nDry run completed. No changes made.")
	} else {
		log.Println("\nPruning completed successfully.")
	}
}

func timeNow() time.Time {
	return time.Now()
}

// pruneAuditLogs removes rows older than cutoff from the three
// append-only audit buckets. Each bucket is scanned independently since
// their record types carry the timestamp under different field names.
func pruneAuditLogs(db *bolt.DB, cutoff time.Time, dryRun bool) error {
	specs := []struct {
		name      string
		bucket    []byte
		extractAt func([]byte) (time.Time, error)
	}{
		{"checks", bucketChecks, func(v []byte) (time.Time, error) {
			var r struct {
				CheckedAt time.Time `json:"CheckedAt"`
			}
			return r.CheckedAt, json.Unmarshal(v, &r)
		}},
		{"openings", bucketOpenings, func(v []byte) (time.Time, error) {
			var r struct {
				OpenedAt time.Time `json:"OpenedAt"`
			}
			return r.OpenedAt, json.Unmarshal(v, &r)
		}},
		{"notifications", bucketNotifications, func(v []byte) (time.Time, error) {
			var r struct {
				SentAt time.Time `json:"SentAt"`
			}
			return r.SentAt, json.Unmarshal(v, &r)
		}},
	}

	for _, spec := range specs {
		kept, pruned, err := pruneBucket(db, spec.bucket, cutoff, spec.extractAt, dryRun)
		if err != nil {
			return fmt.Errorf("prune %s: %w", spec.name, err)
		}
		log.Printf("%s: kept %d, pruned %d", spec.name, kept, pruned)
	}
	return nil
}

func pruneBucket(db *bolt.DB, bucket []byte, cutoff time.Time, extractAt func([]byte) (time.Time, error), dryRun bool) (kept, pruned int, err error) {
	var staleKeys [][]byte

	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			at, err := extractAt(v)
			if err != nil {
				log.Printf("  skipping unparsable row in %s: %v", bucket, err)
				kept++
				return nil
			}
			if at.Before(cutoff) {
				pruned++
				if !dryRun {
					staleKeys = append(staleKeys, append([]byte(nil), k...))
				}
			} else {
				kept++
			}
			return nil
		})
	})
	if err != nil {
		return 0, 0, err
	}

	if dryRun || len(staleKeys) == 0 {
		return kept, pruned, nil
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		for _, k := range staleKeys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return kept, pruned, err
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0600)
}

// The import-products function bulk-loads the catalog from a CSV file,
// either dropped into the import bucket (S3 event) or posted inline as
// csv_data for local runs.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"

	"github.com/Zaharka0/tobacco-store-design/models"
	"github.com/Zaharka0/tobacco-store-design/pkg/cache"
	"github.com/Zaharka0/tobacco-store-design/pkg/config"
	"github.com/Zaharka0/tobacco-store-design/pkg/database"
)

var (
	db  *sql.DB
	rdb *redis.Client
	ctx = context.Background()

	// fetchS3Object is replaced in tests.
	fetchS3Object = downloadFromS3
)

// ImportEvent carries either S3 event records or an inline CSV payload.
type ImportEvent struct {
	Records []events.S3EventRecord `json:"Records,omitempty"`
	CSVData string                 `json:"csv_data,omitempty"`
}

// Expected CSV header: name, price, category, image, in_stock, discount.
const minColumns = 3

func handler(event ImportEvent) error {
	var csvContent []byte
	var err error

	switch {
	case len(event.Records) > 0:
		s3Record := event.Records[0].S3
		bucket := s3Record.Bucket.Name
		key := s3Record.Object.Key
		log.Printf("Processing S3 event for bucket: %s, key: %s", bucket, key)

		csvContent, err = fetchS3Object(bucket, key)
		if err != nil {
			return fmt.Errorf("failed to download %s/%s: %w", bucket, key, err)
		}
	case event.CSVData != "":
		log.Println("Processing direct CSV data payload.")
		csvContent = []byte(event.CSVData)
	default:
		return fmt.Errorf("no S3 event record or direct CSV data found in the payload")
	}

	imported, skipped, err := importCSV(csvContent)
	if err != nil {
		return err
	}

	invalidateCache()
	log.Printf("Import finished: %d products upserted, %d rows skipped.", imported, skipped)
	return nil
}

func importCSV(content []byte) (imported, skipped int, err error) {
	reader := csv.NewReader(bytes.NewReader(content))
	// Rows may omit trailing optional columns.
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return 0, 0, fmt.Errorf("CSV is empty or has only headers")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, row := range records[1:] {
		product, ok := parseRow(i+2, row)
		if !ok {
			skipped++
			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (name, price, category, image_url, in_stock, discount)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (name) DO UPDATE SET
				price = EXCLUDED.price,
				category = EXCLUDED.category,
				image_url = EXCLUDED.image_url,
				in_stock = EXCLUDED.in_stock,
				discount = EXCLUDED.discount,
				updated_at = CURRENT_TIMESTAMP`,
			product.Name, product.Price, product.Category,
			imageOrPlaceholder(product.Image), product.InStock, product.Discount); err != nil {
			log.Printf("Error upserting product %q (row %d): %v", product.Name, i+2, err)
			skipped++
			continue
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return imported, skipped, nil
}

// parseRow maps one CSV data row onto a ProductCSV. Rows with a missing
// name or an unparseable price are reported and skipped, matching how
// the rest of the file is still imported around a bad row.
func parseRow(lineNo int, row []string) (models.ProductCSV, bool) {
	var p models.ProductCSV
	if len(row) < minColumns {
		log.Printf("Skipping row %d due to insufficient columns: %v", lineNo, row)
		return p, false
	}

	p.Name = strings.TrimSpace(row[0])
	if p.Name == "" {
		log.Printf("Skipping row %d: empty product name", lineNo)
		return p, false
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		log.Printf("Skipping row %d: invalid price %q: %v", lineNo, row[1], err)
		return p, false
	}
	p.Price = price
	p.Category = strings.TrimSpace(row[2])

	if len(row) > 3 {
		p.Image = strings.TrimSpace(row[3])
	}

	p.InStock = true
	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		inStock, err := strconv.ParseBool(strings.TrimSpace(row[4]))
		if err != nil {
			log.Printf("Skipping row %d: invalid in_stock %q: %v", lineNo, row[4], err)
			return p, false
		}
		p.InStock = inStock
	}

	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		discount, err := strconv.Atoi(strings.TrimSpace(row[5]))
		if err != nil {
			log.Printf("Skipping row %d: invalid discount %q: %v", lineNo, row[5], err)
			return p, false
		}
		p.Discount = discount
	}
	return p, true
}

func imageOrPlaceholder(image string) string {
	if image == "" {
		return "/placeholder.svg"
	}
	return image
}

// invalidateCache drops the cached id set so the next catalog read
// repopulates from Postgres. Soft failure: the import itself succeeded.
func invalidateCache() {
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, "all_product_ids").Err(); err != nil {
		log.Printf("Error invalidating product cache after import: %v", err)
	}
}

func downloadFromS3(bucket, key string) ([]byte, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func main() {
	config.LoadEnv()

	dbClient, err := database.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize DB client: %v", err)
	}
	defer dbClient.Close()
	db = dbClient.DB()

	cacheClient, err := cache.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer cacheClient.Close()
	rdb = cacheClient.Redis()

	lambda.Start(handler)
}

// The upload-image function accepts a base64 data URL from the back
// office, stores the decoded image in the S3 bucket and returns its
// CDN URL.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Zaharka0/tobacco-store-design/pkg/auth"
	"github.com/Zaharka0/tobacco-store-design/pkg/config"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	s3Client objectPutter
	ctx      = context.Background()
)

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod {
	case http.MethodOptions:
		return response.Preflight("POST, OPTIONS"), nil
	case http.MethodPost:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		return uploadImage(request.Body), nil
	}
	return response.MethodNotAllowed(), nil
}

func uploadImage(body string) events.APIGatewayProxyResponse {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}

	mimeType, data, err := decodeDataURL(req.Image)
	if err != nil {
		return response.Error(http.StatusBadRequest, "Invalid image format")
	}

	extension := mimeType[strings.Index(mimeType, "/")+1:]
	filename := fmt.Sprintf("products/%s_%s.%s",
		time.Now().Format("20060102_150405"), shortID(), extension)

	bucket := config.Get("S3_BUCKET", "files")
	if _, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	}); err != nil {
		log.Printf("Error uploading image %s: %v", filename, err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить изображение")
	}

	return response.OK(map[string]string{"url": cdnURL(filename)})
}

// decodeDataURL splits a "data:image/<type>;base64,<payload>" URL into
// its MIME type and decoded bytes. Anything that is not an image data
// URL is rejected.
func decodeDataURL(dataURL string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return "", nil, fmt.Errorf("not an image data URL")
	}

	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}

	mimeType = strings.TrimPrefix(header, "data:")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mimeType, data, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func cdnURL(filename string) string {
	base := config.Get("CDN_BASE_URL",
		fmt.Sprintf("https://cdn.poehali.dev/projects/%s/bucket", os.Getenv("AWS_ACCESS_KEY_ID")))
	return strings.TrimRight(base, "/") + "/" + filename
}

func newS3Client() (objectPutter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := os.Getenv("S3_ENDPOINT")
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func main() {
	config.LoadEnv()

	client, err := newS3Client()
	if err != nil {
		log.Fatalf("Failed to initialize S3 client: %v", err)
	}
	s3Client = client

	lambda.Start(handler)
}

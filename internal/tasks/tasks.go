package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/email"
	"plantfinder/api/internal/models"
	"plantfinder/api/internal/services"
)

// TypeImageProcess is the background task for normalizing uploaded plant
// photos. Match notifications use services.TypeMatchNotify, declared next to
// the code that enqueues them.
const TypeImageProcess = "image:process"

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds dependencies
// needed by task handlers.
type TaskProcessor struct {
	cfg          *config.Config
	emailSender  email.Sender
	plantService services.IPlantService
	matchService services.IMatchService
	userService  services.IUserService
	s3Client     *s3.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	plantService services.IPlantService,
	matchService services.IMatchService,
	userService services.IUserService,
	s3Client *s3.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:          cfg,
		emailSender:  emailSender,
		plantService: plantService,
		matchService: matchService,
		userService:  userService,
		s3Client:     s3Client,
	}
}

// SetupServer configures an Asynq server instance and the handler mux for
// the given worker mode. The caller runs the returned server.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5, // Separate queue for images
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(services.TypeMatchNotify, processor.HandleMatchNotifyTask)
		fmt.Println("Registered background task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		fmt.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		fmt.Println("Running in API mode, no task server started.")
		return nil, nil
	}

	return srv, mux
}

// --- Task Handlers ---

// HandleMatchNotifyTask emails both parties of a fresh seed match.
func (p *TaskProcessor) HandleMatchNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload services.MatchNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal match notify payload: %v: %w", err, asynq.SkipRetry)
	}

	match, err := p.matchService.GetMatchByID(ctx, payload.MatchID)
	if err != nil {
		log.Printf("Error fetching match %s for notification: %v", payload.MatchID, err)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("match not found: %w", asynq.SkipRetry)
		}
		return err
	}

	subject := fmt.Sprintf("Seed match found: %s", match.PlantCommonName)

	senderBody := fmt.Sprintf(
		"Good news! Your %s seed offer has been matched.\r\n\r\n"+
			"%s has requested a packet. Please confirm the match to start the exchange.\r\n",
		match.PlantCommonName, match.ReceiverName)
	receiverBody := fmt.Sprintf(
		"Good news! Your request for %s seeds has been matched.\r\n\r\n"+
			"%s has a packet for you. You will be notified when it ships.\r\n",
		match.PlantCommonName, match.SenderName)

	notified := 0
	for _, party := range []struct {
		userID string
		body   string
	}{
		{match.SenderID, senderBody},
		{match.ReceiverID, receiverBody},
	} {
		user, err := p.userService.FindUserByID(ctx, party.userID)
		if err != nil || user.Email == "" {
			log.Printf("No email address for user %s, skipping match notification", party.userID)
			continue
		}
		rawMessage := buildRawMessage(p.cfg.SmtpFromAddress, user.Email, subject, party.body)
		if err := p.emailSender.Send(ctx, []string{user.Email}, subject, rawMessage); err != nil {
			log.Printf("Failed to send match notification to %s: %v", user.Email, err)
			return err
		}
		notified++
	}

	log.Printf("Match notification task processed: MatchID=%s, notified=%d", payload.MatchID, notified)
	return nil
}

// buildRawMessage constructs a plain-text email with essential headers.
func buildRawMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// ImageTaskPayload carries the data for image normalization tasks.
type ImageTaskPayload struct {
	S3Key   string `json:"s3_key"`
	PlantID string `json:"plant_id"`
}

// HandleImageProcessTask processes plant photo normalization tasks.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PlantID == "" {
		return fmt.Errorf("missing plant ID in payload: %w", asynq.SkipRetry)
	}
	if p.s3Client == nil {
		return fmt.Errorf("S3 storage is not configured: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, PlantID=%s\n", payload.S3Key, payload.PlantID)

	// 1. Download image from S3
	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		log.Printf("Error getting object %s from S3: %v", payload.S3Key, err)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		log.Printf("Error reading image object body for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("failed to read image data: %w", err)
	}

	// Check size before decoding
	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	// 2. Check dimensions
	maxWidth := uint(p.cfg.ImageMaxDimension)
	maxHeight := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxWidth || uint(img.Bounds().Dy()) > maxHeight

	processedImageKey := payload.S3Key
	var processedImageData []byte
	contentType := "image/" + format
	if getObjectOutput.ContentType != nil {
		contentType = *getObjectOutput.ContentType
	}

	// 3. Resize if needed
	if needsResize {
		log.Printf("Resizing image %s (original: %dx%d, max: %dx%d)", payload.S3Key, img.Bounds().Dx(), img.Bounds().Dy(), maxWidth, maxHeight)
		resizedImg := resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
		var buf bytes.Buffer
		// Re-encode as JPEG
		err = jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85})
		if err != nil {
			log.Printf("Error encoding resized image %s: %v", payload.S3Key, err)
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		processedImageData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		if int64(len(processedImageData)) > maxSizeBytes {
			log.Printf("Resized image %s still exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(processedImageData), maxSizeBytes)
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}

	} else {
		processedImageData = imgData
	}

	// 4. Upload processed image (overwrite original)
	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(processedImageKey),
		Body:        bytes.NewReader(processedImageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Error uploading processed image %s to S3: %v", processedImageKey, err)
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	// 5. Update plant document
	err = p.plantService.AddImageToPlant(ctx, payload.PlantID, processedImageKey)
	if err != nil {
		log.Printf("Error adding image key %s to plant %s: %v", processedImageKey, payload.PlantID, err)
		return fmt.Errorf("failed to update plant with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, PlantID=%s", processedImageKey, payload.PlantID)
	return nil
}

package s3export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config del export. Endpoint y PathStyle sirven para MinIO / entornos locales.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string

	// Opcionales; si faltan se usa la cadena de credenciales por defecto.
	AccessKeyID     string
	SecretAccessKey string
}

// Exporter escribe cada solicitud archivada como un objeto JSON en
// {prefix}{shelterID}/{archivedID}.json.
type Exporter struct {
	client *s3.Client
	bucket string
	prefix string
}

func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Exporter{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

type document struct {
	ID              string                       `json:"id"`
	ApplicationID   string                       `json:"application_id"`
	ApplicantID     string                       `json:"applicant_id"`
	ShelterID       string                       `json:"shelter_id"`
	PetID           string                       `json:"pet_id"`
	PetName         string                       `json:"pet_name"`
	ApplicationData applications.ApplicationData `json:"application_data"`
	RejectionReason string                       `json:"rejection_reason"`
	SubmittedAt     time.Time                    `json:"submitted_at"`
	ReviewedAt      *time.Time                   `json:"reviewed_at,omitempty"`
	RejectedAt      time.Time                    `json:"rejected_at"`
}

func (e *Exporter) Export(ctx context.Context, a archive.ArchivedApplication) error {
	body, err := json.Marshal(document{
		ID:              a.ID,
		ApplicationID:   a.ApplicationID,
		ApplicantID:     a.ApplicantID,
		ShelterID:       a.ShelterID,
		PetID:           a.PetID,
		PetName:         a.PetName,
		ApplicationData: a.Data,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		RejectedAt:      a.RejectedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal archived application: %w", err)
	}

	key := e.Key(a)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"application-id": a.ApplicationID,
			"pet-id":         a.PetID,
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (e *Exporter) Key(a archive.ArchivedApplication) string {
	return e.prefix + path.Join(a.ShelterID, a.ID+".json")
}

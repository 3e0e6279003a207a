package importer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

// Images uploads the primary listing image for every product the product
// stage created. A missing local image file is a data-completeness issue,
// not a pipeline defect: it is logged and skipped.
type Images struct {
	cfg    *config.Config
	client Service
	loader *dataset.Loader
	log    *slog.Logger
}

// NewImages creates the image import stage.
func NewImages(cfg *config.Config, client Service, log *slog.Logger) *Images {
	return &Images{cfg: cfg, client: client, loader: dataset.NewLoader(cfg), log: log}
}

// ImagesResult reports what an image import run did.
type ImagesResult struct {
	Total    int
	Uploaded int
	Skipped  int
}

// Run uploads images for the product import result mapping.
func (im *Images) Run(ctx context.Context, opts Options) (*ImagesResult, error) {
	mappings, err := im.loadMappings()
	if err != nil {
		return nil, err
	}
	im.log.Info("loaded product mappings", "count", len(mappings))

	if !opts.Execute {
		fmt.Fprintln(opts.out(), "Dry run: would upload images for first 3 products")
		for i, m := range mappings {
			if i >= 3 {
				break
			}
			fmt.Fprintf(opts.out(), "  product %s  dataset_id=%s\n", m.ProductID, m.DatasetProductID)
		}
		return &ImagesResult{Total: len(mappings)}, nil
	}

	records, err := im.loader.LoadProducts(im.cfg.DatasetPart)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]dataset.ProductRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	credentials, err := loadSellerCredentials(im.cfg)
	if err != nil {
		return nil, err
	}
	tokens := make(map[string]string)

	result := &ImagesResult{Total: len(mappings)}
	for i, mapping := range mappings {
		pipeline.ReportProgress(ctx, fmt.Sprintf("uploading image %d/%d", i+1, len(mappings)))

		record, ok := byID[mapping.DatasetProductID]
		if !ok {
			im.log.Warn("dataset product not found, skipping", "dataset_id", mapping.DatasetProductID)
			result.Skipped++
			continue
		}
		if len(record.Images) == 0 {
			im.log.Info("no images for product", "dataset_id", mapping.DatasetProductID)
			result.Skipped++
			continue
		}

		image := primaryImage(record.Images)
		localPath := filepath.Join(im.cfg.ImagesDir, image.Filename)
		data, err := os.ReadFile(localPath)
		if os.IsNotExist(err) {
			im.log.Warn("image file missing on disk, skipping", "file", image.Filename, "dataset_id", mapping.DatasetProductID)
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("read image %s: %w", image.Filename, err)
		}

		token, err := im.sellerToken(ctx, tokens, credentials, mapping.SellerID)
		if err != nil {
			return result, err
		}
		if err := im.uploadOne(ctx, token, mapping.ProductID, image.Filename, data); err != nil {
			return result, err
		}
		result.Uploaded++
		im.log.Info("uploaded image", "file", image.Filename, "product", mapping.ProductID)
	}

	fmt.Fprintf(opts.out(), "Upload completed: %d uploaded, %d skipped of %d products\n",
		result.Uploaded, result.Skipped, result.Total)
	return result, nil
}

// uploadOne performs the three-step handshake: request a destination,
// transfer the bytes, then attach the public reference to the product.
func (im *Images) uploadOne(ctx context.Context, token, productID, filename string, data []byte) error {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	target, err := im.client.RequestImageUpload(ctx, token, api.UploadRequest{
		FileName: filename,
		FileSize: int64(len(data)),
		MimeType: contentType,
	})
	if err != nil {
		return fmt.Errorf("request upload for %s: %w", filename, err)
	}
	if err := im.client.UploadFile(ctx, target.UploadURL, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("transfer %s: %w", filename, err)
	}
	if err := im.client.AttachProductImages(ctx, token, productID, []string{target.CDNURL}); err != nil {
		return fmt.Errorf("attach %s to product %s: %w", filename, productID, err)
	}
	return nil
}

func (im *Images) sellerToken(ctx context.Context, tokens map[string]string, credentials map[string]sellerCredentials, sellerID string) (string, error) {
	if token, ok := tokens[sellerID]; ok {
		return token, nil
	}
	credential, ok := credentials[sellerID]
	if !ok {
		return "", fmt.Errorf("missing user credentials for seller %s", sellerID)
	}
	token, err := im.client.Login(ctx, credential.email, credential.password)
	if err != nil {
		return "", fmt.Errorf("login %s: %w", credential.email, err)
	}
	tokens[sellerID] = token
	return token, nil
}

func (im *Images) loadMappings() ([]snapshot.ImportResult, error) {
	path := im.cfg.OutputFile("product_import_results.json")
	mappings, err := snapshot.ReadResults(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("product_import_results.json not found, import products first")
	}
	return mappings, err
}

// primaryImage returns the image flagged primary, or the first one.
func primaryImage(images []dataset.ImageRef) dataset.ImageRef {
	for _, img := range images {
		if img.IsPrimary {
			return img
		}
	}
	return images[0]
}

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/types"
)

// BucketFiles lists the files stored in a bucket service.
func (r *Router) BucketFiles(ctx context.Context, serviceID string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindBucket, serviceID)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := r.forward(ctx, http.MethodGet, svc.URL()+"/data/files", nil, nil, &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// BucketUpload streams a file into a bucket service as a multipart
// upload.
func (r *Router) BucketUpload(ctx context.Context, serviceID, filename, contentType string, file io.Reader) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindBucket, serviceID)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	uploadCtx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPost, svc.URL()+"/data/upload", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &nodeclient.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out map[string]any
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download is a file fetched from a bucket service.
type Download struct {
	Content     []byte
	ContentType string
	Filename    string
}

// BucketDownload fetches a file from a bucket service.
func (r *Router) BucketDownload(ctx context.Context, serviceID, filename string) (*Download, error) {
	svc, err := r.resolve(types.ServiceKindBucket, serviceID)
	if err != nil {
		return nil, err
	}

	resp, err := r.do(ctx, http.MethodGet, svc.URL()+"/data/download/"+filename, nil, nil, transferTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &nodeclient.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Download{
		Content:     content,
		ContentType: contentType,
		Filename:    filename,
	}, nil
}

// BucketDeleteFile removes a file from a bucket service.
func (r *Router) BucketDeleteFile(ctx context.Context, serviceID, filename string) (map[string]any, error) {
	svc, err := r.resolve(types.ServiceKindBucket, serviceID)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := r.forward(ctx, http.MethodDelete, svc.URL()+"/data/delete/"+filename, nil, nil, &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeJSON(body io.Reader, out any) error {
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode service response: %w", err)
	}
	return nil
}

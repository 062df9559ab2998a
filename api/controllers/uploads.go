package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/internal/uploads"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

const multipartMemoryLimit = 4 << 20

// UploadCreate accepts a multipart bill upload and enqueues processing.
func UploadCreate(svc uploads.Service, logg *logger.Logger, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if maxUploadMB > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, int64(maxUploadMB)*1024*1024+multipartMemoryLimit)
		}
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
			return
		}
		defer file.Close()

		upload, err := svc.Upload(r.Context(), accountID, uploads.UploadInput{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, upload)
	}
}

// UploadList lists the caller's uploads, newest first.
func UploadList(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), accountID, pagination.FromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// UploadDetail serves one upload's status and extraction result.
func UploadDetail(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploadID, err := uuid.Parse(chi.URLParam(r, "uploadId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid upload id"))
			return
		}

		upload, err := svc.Get(r.Context(), accountID, uploadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}

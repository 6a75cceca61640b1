package download

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mediadl/internal/core/job"
	"mediadl/internal/logger"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, log: logger.New("DownloadHandler")}
}

type infoRequest struct {
	URL string `json:"url"`
}

type startResponse struct {
	DownloadID string `json:"download_id"`
	Message    string `json:"message"`
}

type batchResponse struct {
	BatchTicket
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// statusView is what clients see of a job record. The storage path stays
// server-side; finished jobs expose a download URL instead.
type statusView struct {
	ID          string        `json:"id"`
	State       job.State     `json:"state"`
	Progress    *job.Progress `json:"progress,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	BatchID     string        `json:"batch_id,omitempty"`
	DownloadURL string        `json:"download_url,omitempty"`
}

type itemView struct {
	State       job.State `json:"state"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
}

type batchView struct {
	ID         string              `json:"id"`
	Total      int                 `json:"total"`
	Completed  int                 `json:"completed"`
	State      job.BatchState      `json:"state"`
	Items      map[string]itemView `json:"items"`
	FormatID   string              `json:"format_id,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

func fileURL(id string) string { return "/download_file/" + id }

func (h *Handler) fail(c *fiber.Ctx, err error, msg string) error {
	status, ok := statusFor(err)
	if !ok {
		return err
	}
	if msg == "" {
		msg = err.Error()
	}
	return c.Status(status).JSON(errorResponse{Success: false, Error: msg})
}

func (h *Handler) HandleGetInfo(c *fiber.Ctx) error {
	var req infoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "URL is required"})
	}
	info, err := h.service.Info(c.UserContext(), req.URL)
	if err != nil {
		return h.fail(c, err, "Could not fetch video information")
	}
	return c.JSON(info)
}

func (h *Handler) HandleStartDownload(c *fiber.Ctx) error {
	var req SingleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	id, err := h.service.StartSingle(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err, "URL is required")
	}
	return c.JSON(startResponse{DownloadID: id, Message: "Download started successfully"})
}

func (h *Handler) HandleDownloadStatus(c *fiber.Ctx) error {
	st := h.service.Status(c.UserContext(), c.Params("id"))
	view := statusView{
		ID:          st.ID,
		State:       st.State,
		Progress:    st.Progress,
		ErrorDetail: st.ErrorDetail,
		BatchID:     st.BatchID,
	}
	if st.State == job.StateFinished {
		view.DownloadURL = fileURL(st.ID)
	}
	return c.JSON(view)
}

func (h *Handler) HandleDownloadFile(c *fiber.Ctx) error {
	id := c.Params("id")
	art, err := h.service.Claim(c.UserContext(), id)
	if err != nil {
		switch status, _ := statusFor(err); status {
		case fiber.StatusBadRequest:
			return h.fail(c, err, "Download not completed")
		case fiber.StatusNotFound:
			return h.fail(c, err, "File not found")
		default:
			return err
		}
	}
	c.Attachment(art.Name)
	// fasthttp closes the stream after the transfer or when the connection
	// fails, which deletes the artifact.
	return c.SendStream(art, int(art.Size))
}

func (h *Handler) HandleBatchDownload(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	ticket, err := h.service.StartBatch(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err, "URLs are required")
	}
	return c.JSON(batchResponse{
		BatchTicket: *ticket,
		Total:       len(ticket.ItemIDs),
		Message:     "Batch download started",
	})
}

func (h *Handler) HandleBatchStatus(c *fiber.Ctx) error {
	b := h.service.Batch(c.UserContext(), c.Params("id"))
	view := batchView{
		ID:         b.ID,
		Total:      b.Total,
		Completed:  b.Completed,
		State:      b.State,
		Items:      make(map[string]itemView, len(b.Items)),
		FormatID:   b.FormatID,
		FinishedAt: b.FinishedAt,
	}
	for id, o := range b.Items {
		iv := itemView{State: o.State, ErrorDetail: o.ErrorDetail}
		if o.State == job.StateFinished {
			iv.DownloadURL = fileURL(id)
		}
		view.Items[id] = iv
	}
	return c.JSON(view)
}

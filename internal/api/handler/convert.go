package handler

import (
	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/publication"
)

func toDeviceModel(d *device.Device) models.Device {
	m := models.Device{
		ID:          d.ID,
		Name:        d.Name,
		Email:       d.Email,
		Tier:        string(d.Tier),
		LastMessage: d.LastMessage,
		Screenshots: d.Screenshots,
		Notifiable:  d.Notifiable(),
		CreatedAt:   models.Timestamp(d.CreatedAt),
		UpdatedAt:   models.Timestamp(d.UpdatedAt),
	}
	if d.PushToken != "" {
		last4 := d.TokenLast4()
		m.TokenLast4 = &last4
	}
	return m
}

func toPublicationModel(p *publication.Publication) models.Publication {
	return models.Publication{
		ID:               p.ID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		PreviewURL:       p.PreviewURL,
		PDFURL:           p.PDFURL,
		ReleaseDate:      models.Timestamp(p.ReleaseDate),
		FileSize:         p.FileSize,
		Category:         p.Category,
	}
}

// toActionResponse renders an admin outcome. Delivered is only reported for
// single-device actions that carry a device.
func toActionResponse(out *admin.Outcome, single bool) models.ActionResponse {
	resp := models.ActionResponse{Notices: make([]models.Notice, 0, len(out.Notices))}

	if out.Device != nil {
		d := toDeviceModel(out.Device)
		resp.Device = &d
		if single {
			delivered := out.Delivered
			resp.Delivered = &delivered
		}
	}
	if out.Publication != nil {
		p := toPublicationModel(out.Publication)
		resp.Publication = &p
	}
	if out.Result != nil {
		resp.Dispatch = &models.DispatchSummary{
			Sent:    nonNil(out.Result.Sent),
			Skipped: nonNil(out.Result.Skipped),
		}
	}
	for _, n := range out.Notices {
		resp.Notices = append(resp.Notices, models.Notice{Level: string(n.Level), Text: n.Text})
	}
	return resp
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

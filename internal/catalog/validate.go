package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
)

// rawEvent mirrors the published document. Optional numbers stay raw so a
// quoted price is rejected instead of silently coerced.
type rawEvent struct {
	ID             *string         `json:"id"`
	Titulo         *string         `json:"titulo"`
	Categoria      *string         `json:"categoria"`
	Fecha          *string         `json:"fecha"`
	Lugar          *string         `json:"lugar"`
	Imagen         *string         `json:"imagen"`
	Video          *string         `json:"video"`
	Audio          *string         `json:"audio"`
	TipoMultimedia *string         `json:"tipoMultimedia"`
	Orientacion    *string         `json:"orientacion"`
	Duracion       *string         `json:"duracion"`
	Entrada        *string         `json:"entrada"`
	PrecioCOP      json.RawMessage `json:"precioCOP"`
	PrecioPts      json.RawMessage `json:"precioPts"`
	Descripcion    *string         `json:"descripcion"`
}

// Decode parses a catalog document. A body that is not a JSON array yields
// no events; each element failing validation is dropped on its own.
func Decode(body []byte) ([]model.EventRecord, int) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		appLog.Error("catalog document malformed; serving no events", err)
		return []model.EventRecord{}, 0
	}

	out := make([]model.EventRecord, 0, len(items))
	dropped := 0
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		ev, err := validate(item)
		if err == nil {
			if _, dup := seen[ev.ID]; dup {
				err = errors.New("duplicate id " + ev.ID)
			}
		}
		if err != nil {
			dropped++
			appLog.Warn("catalog record dropped", "index", i, "reason", err.Error())
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out, dropped
}

func validate(item json.RawMessage) (model.EventRecord, error) {
	var r rawEvent
	if err := json.Unmarshal(item, &r); err != nil {
		return model.EventRecord{}, err
	}

	var ev model.EventRecord
	var err error
	if ev.ID, err = required("id", r.ID); err != nil {
		return ev, err
	}
	if ev.Titulo, err = required("titulo", r.Titulo); err != nil {
		return ev, err
	}
	cat, err := required("categoria", r.Categoria)
	if err != nil {
		return ev, err
	}
	ev.Categoria = model.Category(cat)
	if !ev.Categoria.Valid() {
		return ev, fmt.Errorf("categoria %q not in enum", cat)
	}
	if ev.Fecha, err = required("fecha", r.Fecha); err != nil {
		return ev, err
	}
	if _, err := model.ParseFecha(ev.Fecha, nil); err != nil {
		return ev, err
	}
	if ev.Lugar, err = required("lugar", r.Lugar); err != nil {
		return ev, err
	}

	for _, m := range []struct {
		name string
		src  *string
		dst  *string
	}{
		{"imagen", r.Imagen, &ev.Imagen},
		{"video", r.Video, &ev.Video},
		{"audio", r.Audio, &ev.Audio},
	} {
		if m.src == nil {
			continue
		}
		if !isMediaRef(*m.src) {
			return ev, fmt.Errorf("%s is neither a URL nor an absolute path", m.name)
		}
		*m.dst = *m.src
	}

	if r.TipoMultimedia != nil {
		switch t := model.MediaType(*r.TipoMultimedia); t {
		case model.MediaImagen, model.MediaVideo, model.MediaAudio:
			ev.TipoMultimedia = t
		default:
			return ev, fmt.Errorf("tipoMultimedia %q not in enum", *r.TipoMultimedia)
		}
	}
	if r.Orientacion != nil {
		switch *r.Orientacion {
		case "horizontal", "vertical":
			ev.Orientacion = *r.Orientacion
		default:
			return ev, fmt.Errorf("orientacion %q not in enum", *r.Orientacion)
		}
	}
	if r.Duracion != nil {
		ev.Duracion = *r.Duracion
	}
	if r.Entrada != nil {
		ev.Entrada = *r.Entrada
	}
	if r.Descripcion != nil {
		ev.Descripcion = *r.Descripcion
	}

	if ev.PrecioCOP, err = price("precioCOP", r.PrecioCOP); err != nil {
		return ev, err
	}
	if ev.PrecioPts, err = price("precioPts", r.PrecioPts); err != nil {
		return ev, err
	}
	return ev, nil
}

func required(name string, v *string) (string, error) {
	if v == nil {
		return "", errors.New("missing " + name)
	}
	return *v, nil
}

// price accepts an absent field or a non-negative JSON number.
func price(name string, raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%s must be non-negative", name)
	}
	return &d, nil
}

func isMediaRef(s string) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

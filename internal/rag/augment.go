package rag

import (
	"fmt"
	"strings"

	"github.com/salubra-ai/salubra/internal/models"
)

// Markers the model is instructed to emit at the end of its reply. The
// chat layer parses them to attribute the answer's source.
const (
	MarkerDatabase = "[FUENTES_USADAS: BASE_DE_DATOS]"
	MarkerGeneral  = "[FUENTES_USADAS: CONOCIMIENTO_GENERAL]"
)

func relevanceLabel(similarity float64) string {
	switch {
	case similarity >= 0.75:
		return "alta"
	case similarity >= 0.50:
		return "media"
	default:
		return "baja"
	}
}

// AugmentPrompt appends the retrieved chunks to the base system prompt as
// a delimited knowledge section, plus the attribution instruction. With no
// results the base prompt is returned unchanged.
func AugmentPrompt(base string, results []models.SearchResult) string {
	if len(results) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n=== CONOCIMIENTO DISPONIBLE EN LA BASE DE DATOS ===\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[Fragmento %d | Documento: %s | Relevancia: %s (%.2f)]\n%s\n",
			i+1, r.DocumentTitle, relevanceLabel(r.Similarity), r.Similarity, strings.TrimSpace(r.Content))
	}
	b.WriteString("\n=== FIN DEL CONOCIMIENTO DISPONIBLE ===\n")
	b.WriteString("\nINSTRUCCION ESTRICTA: evalua si el conocimiento anterior responde ")
	b.WriteString("realmente la pregunta del usuario.\n")
	b.WriteString("- Si lo usas, basa tu respuesta en el y termina tu respuesta EXACTAMENTE con: ")
	b.WriteString(MarkerDatabase)
	b.WriteString("\n- Si no es relevante, responde con tu conocimiento general y termina EXACTAMENTE con: ")
	b.WriteString(MarkerGeneral)
	b.WriteString("\nNo omitas el marcador final bajo ninguna circunstancia.")
	return b.String()
}

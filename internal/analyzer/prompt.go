package analyzer

import (
	"fmt"
	"strings"
)

// buildRubricPrompt renders the Spanish grading prompt for one answer.
// The response contract is a flat JSON object with the nine criteria,
// the derived average and free-text feedback.
func buildRubricPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Eres un profesor experto en NFTs y propiedad intelectual.\n")
	sb.WriteString("Evalúa la siguiente argumentación de un estudiante usando la rúbrica proporcionada.\n\n")

	sb.WriteString("CONTEXTO DEL CASO:\n" + req.CaseContext + "\n\n")
	sb.WriteString("PREGUNTA:\n" + req.QuestionText + "\n\n")
	sb.WriteString("RESPUESTA DEL ESTUDIANTE: " + boolES(req.SubmittedBool) + "\n")
	sb.WriteString("RESPUESTA CORRECTA: " + boolES(req.ExpectedBool) + "\n\n")
	sb.WriteString("ARGUMENTACIÓN DEL ESTUDIANTE:\n" + sanitize(req.Justification) + "\n\n")

	sb.WriteString("RÚBRICA DE EVALUACIÓN (escala 1-5 para cada criterio):\n\n")
	sb.WriteString("1. Comprensión conceptual NFT - NFT vs. obra intelectual\n")
	sb.WriteString("2. Aplicación normativa guatemalteca - aplica correctamente la LPI\n")
	sb.WriteString("3. Distinción soporte-obra - separa soporte digital y obra protegida\n")
	sb.WriteString("4. Conocimiento de smart contracts - aspectos jurídicos de contratos inteligentes\n")
	sb.WriteString("5. Derechos patrimoniales y morales - diferencia y aplica ambos\n")
	sb.WriteString("6. Marco constitucional - balancea cultura vs. autor\n")
	sb.WriteString("7. Coherencia argumentativa - argumentos lógicos y coherentes\n")
	sb.WriteString("8. Uso de jurisprudencia/doctrina - referencia fuentes legales\n")
	sb.WriteString("9. Aplicación práctica - conecta teoría con situaciones reales\n\n")

	sb.WriteString("INSTRUCCIONES:\n")
	sb.WriteString("1. Evalúa cada criterio con una puntuación entera de 1 a 5.\n")
	sb.WriteString("2. Calcula el promedio de los 9 criterios en el campo score.\n")
	sb.WriteString("3. Proporciona feedback específico y constructivo.\n\n")

	sb.WriteString("Responde ÚNICAMENTE con un objeto JSON con estos campos:\n")
	sb.WriteString(`{"comprension_nft": N, "aplicacion_normativa": N, "distincion_soporte": N, ` +
		`"smart_contracts": N, "derechos_patrimoniales": N, "marco_constitucional": N, ` +
		`"coherencia": N, "jurisprudencia": N, "aplicacion_practica": N, ` +
		`"score": N.N, "feedback": "..."}`)
	sb.WriteString("\n")

	return sb.String()
}

// buildParaphrasePrompt asks for a meaning-preserving rewording of a
// question, used only for display.
func buildParaphrasePrompt(text string) string {
	return fmt.Sprintf(`Parafrasea la siguiente pregunta legal sobre NFTs manteniendo EXACTAMENTE el mismo significado y estructura lógica.
Solo cambia algunas palabras por sinónimos y ajusta levemente la redacción, pero conserva la claridad y coherencia:

%q

Responde ÚNICAMENTE con la pregunta parafraseada, sin explicaciones adicionales.`, text)
}

func boolES(b bool) string {
	if b {
		return "Verdadero"
	}
	return "Falso"
}

const maxJustificationRunes = 10000

// sanitize bounds the justification length so a pasted wall of text cannot
// blow up the prompt.
func sanitize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "[Sin argumentación]"
	}
	runes := []rune(text)
	if len(runes) > maxJustificationRunes {
		text = string(runes[:maxJustificationRunes]) + "\n\n[Texto truncado por longitud]"
	}
	return text
}

package service

const (
	systemPrompt = "You are an expert in construction inspection and property appraisal. " +
		"Analyze the provided image with a focus on professional assessment, safety concerns, " +
		"and regulatory compliance. Provide a detailed, objective report suitable for official documentation."

	imagePrompt = "Conduct a detailed analysis of this construction or property image. " +
		"Identify key elements, potential issues, and notable features relevant to a professional " +
		"inspection or appraisal. Include observations on structural components, materials used, " +
		"condition of visible elements, and any apparent code compliance concerns."

	lineBreakMarker = "<br>"
)

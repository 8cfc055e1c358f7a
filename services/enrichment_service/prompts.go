package enrichment_service

import "fmt"

func summaryPrompt(content, title string, maxWords int) string {
	return fmt.Sprintf(`Create a clear, concise summary of this document in approximately %d words.

Document Title: %s

Content:
%s

Requirements:
1. Focus on main themes and key insights
2. Write in clear, accessible language
3. Highlight important findings or conclusions
4. Maximum %d words

Summary:`, maxWords, title, content, maxWords)
}

func keyPointsPrompt(content string, numPoints int) string {
	return fmt.Sprintf(`Extract the %d most important key points from this document.

Content:
%s

Requirements:
1. Each point should be concise but informative (1-2 sentences)
2. Focus on factual information and insights
3. Avoid repetition
4. Order by importance
5. Return exactly %d points

Format as a simple numbered list:
1. [First key point]
2. [Second key point]
...

Key Points:`, numPoints, content, numPoints)
}

func qaPrompt(content string, numPairs int) string {
	return fmt.Sprintf(`Create %d relevant questions and answers based on this document content.

Content:
%s

Requirements:
1. Questions should be specific to the document content
2. Answers should be informative and based on the text
3. Cover different aspects of the document
4. Answers should be 2-3 sentences each

Format:
Q1: [Question about main topic]
A1: [Detailed answer based on content]

Q2: [Question about specific details]
A2: [Detailed answer based on content]

... continue for %d pairs

Q&A:`, numPairs, content, numPairs)
}

func topicsPrompt(content string, numTopics int) string {
	return fmt.Sprintf(`Identify the %d main topics/themes in this document for creating a mind map.

Content:
%s

Requirements:
1. Topics should be broad themes, not specific details
2. Suitable for mind map nodes
3. 1-3 words per topic
4. Return exactly %d topics

Format as a simple list:
- Topic 1
- Topic 2
...

Topics:`, numTopics, content, numTopics)
}

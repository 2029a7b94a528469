package enrichment

// DefaultPrompt asks for a catalogue name and a short description in
// Traditional Chinese, separated by Delimiter.
const DefaultPrompt = `
<description>
這是一個寄往想像中未來外太空貿易站的貨物，收件人與寄件人可能是包含地球在內的任何外星生命，生成一段 120 字以內、不分段、用字通俗易懂的內容物說明，並為該物資取名。該說明將會收錄進一本太空物資圖鑑中。
請注意：你的回應必須完全符合格式要求，並使用繁體中文、避免使用中國用語，只包含名稱和說明，中間用%%%分隔，不要有任何其他文字。
</description>

<output>
{{名稱}}%%%{{說明}}
</output>
`

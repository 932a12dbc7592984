package suggest

var QuestionDetectionSchema = questionDetectionSchema
